package pdfsearch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pdfsearch/internal/archive"
)

var storeModes = []struct {
	name string
	wrap func(archive.Store) archive.Store
}{
	{name: "transactional", wrap: nil},
	{name: "delete then insert", wrap: func(s archive.Store) archive.Store { return plainStore{s} }},
}

func TestRefreshOneRecordPerPDF(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.wrap)
			item := f.item(t, "a.pdf", "b.pdf", "c.txt")

			res, err := f.engine.RefreshItemText(context.Background(), item, f.slot)
			if err != nil {
				t.Fatalf("RefreshItemText: %v", err)
			}
			if res.Files != 3 || res.PDFs != 2 || res.Records != 2 || res.ExtractionFailures != 0 {
				t.Fatalf("unexpected result %+v", res)
			}
			got := f.texts(t, item.ID)
			want := []string{"text of /archive/a.pdf", "text of /archive/b.pdf"}
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Fatalf("got %q want %q", got, want)
			}
			for _, call := range f.extractor.calls {
				if strings.HasSuffix(call, ".txt") {
					t.Fatalf("extractor called for non-PDF %s", call)
				}
			}
		})
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.wrap)
			item := f.item(t, "a.pdf", "b.pdf")
			ctx := context.Background()

			if _, err := f.engine.RefreshItemText(ctx, item, f.slot); err != nil {
				t.Fatalf("first refresh: %v", err)
			}
			first := f.texts(t, item.ID)
			if _, err := f.engine.RefreshItemText(ctx, item, f.slot); err != nil {
				t.Fatalf("second refresh: %v", err)
			}
			second := f.texts(t, item.ID)

			if len(first) != 2 || strings.Join(first, "|") != strings.Join(second, "|") {
				t.Fatalf("refresh not idempotent: %q vs %q", first, second)
			}
		})
	}
}

func TestRefreshNonPDFFilesNeverCount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := f.item(t, "a.pdf")

	if _, err := f.engine.RefreshItemText(ctx, item, f.slot); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := len(f.texts(t, item.ID))

	f.addFile(t, item.ID, "cover.jpg", 2)
	f.addFile(t, item.ID, "notes.txt", 3)
	if _, err := f.engine.RefreshItemText(ctx, item, f.slot); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if after := len(f.texts(t, item.ID)); after != before || after != 1 {
		t.Fatalf("non-PDF files changed record count: before=%d after=%d", before, after)
	}
}

func TestRefreshMimeVariants(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := f.item(t)
	for i, mime := range []string{"application/x-pdf", "TEXT/PDF", "application/pdf; charset=binary", "application/octet-stream"} {
		if _, err := f.mem.AddFile(ctx, archive.File{ItemID: item.ID, ArchiveFilename: "f" + string(rune('a'+i)), MimeBrowser: mime, Order: i}); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	}
	res, err := f.engine.RefreshItemText(ctx, item, f.slot)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.PDFs != 3 || len(f.texts(t, item.ID)) != 3 {
		t.Fatalf("expected 3 PDF records, got %+v", res)
	}
}

func TestRefreshExtractionFailureKeepsGoing(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.wrap)
			f.extractor.fail["/archive/broken.pdf"] = "half a page"
			f.files.missing["gone.pdf"] = true
			item := f.item(t, "broken.pdf", "gone.pdf", "ok.pdf")

			res, err := f.engine.RefreshItemText(context.Background(), item, f.slot)
			if err != nil {
				t.Fatalf("extraction failures must not fail the refresh: %v", err)
			}
			if res.ExtractionFailures != 2 || res.Records != 3 {
				t.Fatalf("unexpected result %+v", res)
			}
			got := f.texts(t, item.ID)
			want := []string{"half a page", "", "text of /archive/ok.pdf"}
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Fatalf("got %q want %q", got, want)
			}
		})
	}
}

func TestRefreshLeavesOtherElementsAlone(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := f.item(t, "a.pdf")

	if _, err := f.mem.InsertElementSet(ctx, archive.ElementSet{Name: "Dublin Core"}, []archive.Element{{Name: "Title"}}); err != nil {
		t.Fatalf("InsertElementSet: %v", err)
	}
	title, err := f.mem.FindElementByName(ctx, "Dublin Core", "Title")
	if err != nil {
		t.Fatalf("FindElementByName: %v", err)
	}
	if _, err := f.mem.InsertElementText(ctx, archive.ElementText{RecordID: item.ID, RecordTypeID: f.slot.ItemRecordTypeID, ElementID: title.ID, Text: "Annual report"}); err != nil {
		t.Fatalf("InsertElementText: %v", err)
	}

	if _, err := f.engine.RefreshItemText(ctx, item, f.slot); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	titles, err := f.mem.ListElementTexts(ctx, item.ID, f.slot.ItemRecordTypeID, title.ID)
	if err != nil {
		t.Fatalf("ListElementTexts: %v", err)
	}
	if len(titles) != 1 || titles[0].Text != "Annual report" {
		t.Fatalf("refresh touched another element: %+v", titles)
	}
}

func TestRefreshStorageFailure(t *testing.T) {
	var failing *failingInsertStore
	f := newFixture(t, func(s archive.Store) archive.Store {
		failing = &failingInsertStore{Store: s}
		return failing
	})
	item := f.item(t, "a.pdf")
	failing.failRecord = item.ID

	_, err := f.engine.RefreshItemText(context.Background(), item, f.slot)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if se.Op != "insert element text" || !errors.Is(err, errDiskFull) {
		t.Fatalf("unexpected storage error %v", err)
	}
}

func TestRefreshRequiresSlot(t *testing.T) {
	f := newFixture(t, nil)
	item := f.item(t, "a.pdf")
	if _, err := f.engine.RefreshItemText(context.Background(), item, Slot{}); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
	if len(f.extractor.calls) != 0 {
		t.Fatalf("extractor ran without a slot")
	}
}

func TestRefreshItemUnknownID(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.engine.RefreshItem(context.Background(), 9999, f.slot)
	if !errors.Is(err, ErrItemGone) {
		t.Fatalf("expected ErrItemGone, got %v", err)
	}
}
