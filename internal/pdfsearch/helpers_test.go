package pdfsearch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"pdfsearch/internal/archive"
)

// fakeFiles resolves keys under /archive without touching disk.
type fakeFiles struct {
	missing map[string]bool
}

func (f *fakeFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeFiles) Localize(ctx context.Context, key string) (string, func(), error) {
	if f.missing[key] {
		return "", nil, errors.New("object not found: " + key)
	}
	return "/archive/" + key, func() {}, nil
}

// fakeExtractor returns "text of <path>" unless the path is marked as failing.
type fakeExtractor struct {
	mu    sync.Mutex
	fail  map[string]string
	calls []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if partial, ok := f.fail[path]; ok {
		return partial, &ExtractionError{Path: path, Err: errors.New("exit status 1")}
	}
	return "text of " + path, nil
}

type okProbe struct{ calls int }

func (p *okProbe) Available() error {
	p.calls++
	return nil
}

type missingProbe struct{ calls int }

func (p *missingProbe) Available() error {
	p.calls++
	return errors.New("exec: \"pdftotext\": executable file not found in $PATH")
}

// plainStore hides ReplaceElementTexts so the engine takes the delete-then-insert path.
type plainStore struct {
	archive.Store
}

// failingInsertStore fails inserts for one record.
type failingInsertStore struct {
	archive.Store
	failRecord int64
}

var errDiskFull = errors.New("disk full")

func (s *failingInsertStore) InsertElementText(ctx context.Context, text archive.ElementText) (int64, error) {
	if text.RecordID == s.failRecord {
		return 0, errDiskFull
	}
	return s.Store.InsertElementText(ctx, text)
}

type fixture struct {
	mem       *archive.MemoryStore
	files     *fakeFiles
	extractor *fakeExtractor
	engine    *Engine
	slots     *SlotResolver
	lifecycle *Lifecycle
	slot      Slot
}

// newFixture builds an installed engine over a memory store. wrap, when set, decorates the store the engine sees.
func newFixture(t *testing.T, wrap func(archive.Store) archive.Store) *fixture {
	t.Helper()
	mem := archive.NewMemoryStore()
	var store archive.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	f := &fixture{
		mem:       mem,
		files:     &fakeFiles{missing: map[string]bool{}},
		extractor: &fakeExtractor{fail: map[string]string{}},
	}
	f.engine = &Engine{
		Store:      store,
		Files:      f.files,
		Classifier: NewMimeClassifier(),
		Extractor:  f.extractor,
	}
	f.lifecycle = &Lifecycle{Store: mem, Probe: &okProbe{}}
	f.slots = &SlotResolver{Source: f.lifecycle}
	f.lifecycle.Slots = f.slots

	slot, err := f.lifecycle.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	f.slot = slot
	return f
}

func (f *fixture) item(t *testing.T, files ...string) archive.Item {
	t.Helper()
	ctx := context.Background()
	item, err := f.mem.CreateItem(ctx)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	for i, name := range files {
		f.addFile(t, item.ID, name, i+1)
	}
	return item
}

// addFile attaches name with a MIME type guessed from its extension.
func (f *fixture) addFile(t *testing.T, itemID int64, name string, order int) archive.File {
	t.Helper()
	mime := "text/plain"
	switch {
	case strings.HasSuffix(name, ".pdf"):
		mime = "application/pdf"
	case strings.HasSuffix(name, ".jpg"):
		mime = "image/jpeg"
	}
	file, err := f.mem.AddFile(context.Background(), archive.File{
		ItemID:           itemID,
		ArchiveFilename:  name,
		OriginalFilename: name,
		MimeBrowser:      mime,
		Order:            order,
	})
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	return file
}

func (f *fixture) texts(t *testing.T, itemID int64) []string {
	t.Helper()
	rows, err := f.mem.ListElementTexts(context.Background(), itemID, f.slot.ItemRecordTypeID, f.slot.ElementID)
	if err != nil {
		t.Fatalf("ListElementTexts: %v", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.HTML {
			t.Fatalf("text record %d stored as HTML", r.ID)
		}
		out = append(out, r.Text)
	}
	return out
}

// otherProcess manages the same store through its own lifecycle and resolver, the way the CLI
// does while the API or worker keeps running.
func (f *fixture) otherProcess() *Lifecycle {
	slots := &SlotResolver{}
	lc := &Lifecycle{Store: f.mem, Probe: &okProbe{}, Slots: slots}
	slots.Source = lc
	return lc
}

// reinstallElsewhere uninstalls and reinstalls through another process and returns the new slot.
func (f *fixture) reinstallElsewhere(t *testing.T) Slot {
	t.Helper()
	lc := f.otherProcess()
	ctx := context.Background()
	if err := lc.Uninstall(ctx); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	slot, err := lc.Install(ctx)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if slot == f.slot {
		t.Fatalf("reinstall reused element %d", slot.ElementID)
	}
	return slot
}

func (f *fixture) textsIn(t *testing.T, itemID int64, slot Slot) int {
	t.Helper()
	rows, err := f.mem.ListElementTexts(context.Background(), itemID, slot.ItemRecordTypeID, slot.ElementID)
	if err != nil {
		t.Fatalf("ListElementTexts: %v", err)
	}
	return len(rows)
}

// listHookStore runs onList before listing an item's files.
type listHookStore struct {
	archive.Store
	onList func(itemID int64)
}

func (s *listHookStore) ListFiles(ctx context.Context, itemID int64) ([]archive.File, error) {
	if s.onList != nil {
		s.onList(itemID)
	}
	return s.Store.ListFiles(ctx, itemID)
}
