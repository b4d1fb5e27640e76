package archive

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreDeleteElementSetCascadesTexts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item, _ := store.CreateItem(ctx)
	rt, err := store.RecordTypeID(ctx, RecordTypeItem)
	if err != nil {
		t.Fatalf("RecordTypeID: %v", err)
	}

	set, err := store.InsertElementSet(ctx, ElementSet{Name: "PDF Search"}, []Element{{Name: "Text"}})
	if err != nil {
		t.Fatalf("InsertElementSet: %v", err)
	}
	el, err := store.FindElementByName(ctx, "PDF Search", "Text")
	if err != nil {
		t.Fatalf("FindElementByName: %v", err)
	}
	if _, err := store.InsertElementText(ctx, ElementText{RecordID: item.ID, RecordTypeID: rt, ElementID: el.ID, Text: "x"}); err != nil {
		t.Fatalf("InsertElementText: %v", err)
	}

	if err := store.DeleteElementSet(ctx, set.ID); err != nil {
		t.Fatalf("DeleteElementSet: %v", err)
	}
	texts, _ := store.ListElementTexts(ctx, item.ID, rt, el.ID)
	if len(texts) != 0 {
		t.Fatalf("expected texts to cascade, got %d", len(texts))
	}
	if _, err := store.FindElementByName(ctx, "PDF Search", "Text"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected element gone, got %v", err)
	}

	stale := []ElementText{{Text: "y"}}
	if err := store.ReplaceElementTexts(ctx, item.ID, rt, el.ID, stale); !errors.Is(err, ErrNoElement) {
		t.Fatalf("replace under deleted element: expected ErrNoElement, got %v", err)
	}
	if _, err := store.InsertElementText(ctx, ElementText{RecordID: item.ID, RecordTypeID: rt, ElementID: el.ID}); !errors.Is(err, ErrNoElement) {
		t.Fatalf("insert under deleted element: expected ErrNoElement, got %v", err)
	}
}

func TestMemoryStoreInsertElementSetConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if _, err := store.InsertElementSet(ctx, ElementSet{Name: "PDF Search"}, nil); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := store.InsertElementSet(ctx, ElementSet{Name: "PDF Search"}, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStoreListFilesNaturalOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item, _ := store.CreateItem(ctx)
	b, _ := store.AddFile(ctx, File{ItemID: item.ID, ArchiveFilename: "b.pdf", Order: 2})
	a, _ := store.AddFile(ctx, File{ItemID: item.ID, ArchiveFilename: "a.pdf", Order: 1})
	c, _ := store.AddFile(ctx, File{ItemID: item.ID, ArchiveFilename: "c.pdf", Order: 2})

	files, err := store.ListFiles(ctx, item.ID)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	want := []int64{a.ID, b.ID, c.ID}
	for i, f := range files {
		if f.ID != want[i] {
			t.Fatalf("position %d: got file %d want %d", i, f.ID, want[i])
		}
	}
}

func TestMemoryStoreItemIDsStreamsAcrossPages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetPageSize(2)
	var want []int64
	for i := 0; i < 5; i++ {
		item, _ := store.CreateItem(ctx)
		want = append(want, item.ID)
	}

	cur := store.ItemIDs(ctx)
	defer cur.Close()
	var got []int64
	for cur.Next() {
		got = append(got, cur.ID())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestItemCursorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()
	store.SetPageSize(1)
	store.CreateItem(ctx)
	store.CreateItem(ctx)

	cur := store.ItemIDs(ctx)
	if !cur.Next() {
		t.Fatalf("expected first id")
	}
	cancel()
	if cur.Next() {
		t.Fatalf("expected cursor to stop after cancel")
	}
	if !errors.Is(cur.Err(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", cur.Err())
	}
}
