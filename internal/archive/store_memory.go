package archive

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for dev runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	nextID      int64
	items       map[int64]Item
	files       map[int64]File
	sets        map[int64]ElementSet
	elements    map[int64]Element
	texts       map[int64]ElementText
	recordTypes map[string]int64
	pageSize    int
}

// NewMemoryStore constructs a MemoryStore seeded with the Item record type.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items:       make(map[int64]Item),
		files:       make(map[int64]File),
		sets:        make(map[int64]ElementSet),
		elements:    make(map[int64]Element),
		texts:       make(map[int64]ElementText),
		recordTypes: make(map[string]int64),
	}
	s.recordTypes[RecordTypeItem] = s.id()
	return s
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// SetPageSize overrides how many item IDs ItemIDs loads per page.
func (s *MemoryStore) SetPageSize(n int) {
	s.mu.Lock()
	s.pageSize = n
	s.mu.Unlock()
}

// CreateItem adds an item and returns it.
func (s *MemoryStore) CreateItem(ctx context.Context) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	item := Item{ID: s.id(), Added: now, Modified: now}
	s.items[item.ID] = item
	return item, nil
}

// AddFile attaches a file to an existing item.
func (s *MemoryStore) AddFile(ctx context.Context, f File) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[f.ItemID]; !ok {
		return File{}, ErrNotFound
	}
	f.ID = s.id()
	if f.Added.IsZero() {
		f.Added = time.Now().UTC()
	}
	s.files[f.ID] = f
	return f, nil
}

// RemoveFile deletes a file and returns the removed row, the way the host hands it to after-delete hooks.
func (s *MemoryStore) RemoveFile(ctx context.Context, id int64) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return File{}, ErrNotFound
	}
	delete(s.files, id)
	return f, nil
}

// FindItem fetches an item by ID.
func (s *MemoryStore) FindItem(ctx context.Context, id int64) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// ListFiles returns an item's files ordered by (Order, ID).
func (s *MemoryStore) ListFiles(ctx context.Context, itemID int64) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []File
	for _, f := range s.files {
		if f.ItemID == itemID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteElementTexts removes a record's texts for the given elements.
func (s *MemoryStore) DeleteElementTexts(ctx context.Context, recordID, recordTypeID int64, elementIDs []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTextsLocked(recordID, recordTypeID, elementIDs), nil
}

func (s *MemoryStore) deleteTextsLocked(recordID, recordTypeID int64, elementIDs []int64) int64 {
	wanted := make(map[int64]struct{}, len(elementIDs))
	for _, id := range elementIDs {
		wanted[id] = struct{}{}
	}
	var n int64
	for id, t := range s.texts {
		if t.RecordID != recordID || t.RecordTypeID != recordTypeID {
			continue
		}
		if _, ok := wanted[t.ElementID]; ok {
			delete(s.texts, id)
			n++
		}
	}
	return n
}

// InsertElementText stores one element text and returns its ID.
func (s *MemoryStore) InsertElementText(ctx context.Context, text ElementText) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elements[text.ElementID]; !ok {
		return 0, ErrNoElement
	}
	text.ID = s.id()
	s.texts[text.ID] = text
	return text.ID, nil
}

// ReplaceElementTexts swaps a record's texts for one element under a single lock.
func (s *MemoryStore) ReplaceElementTexts(ctx context.Context, recordID, recordTypeID, elementID int64, texts []ElementText) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elements[elementID]; !ok {
		return ErrNoElement
	}
	s.deleteTextsLocked(recordID, recordTypeID, []int64{elementID})
	for _, t := range texts {
		t.ID = s.id()
		t.RecordID = recordID
		t.RecordTypeID = recordTypeID
		t.ElementID = elementID
		s.texts[t.ID] = t
	}
	return nil
}

// ListElementTexts returns a record's texts for one element ordered by ID.
func (s *MemoryStore) ListElementTexts(ctx context.Context, recordID, recordTypeID, elementID int64) ([]ElementText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ElementText
	for _, t := range s.texts {
		if t.RecordID == recordID && t.RecordTypeID == recordTypeID && t.ElementID == elementID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindElementSetByName fetches an element set by name.
func (s *MemoryStore) FindElementSetByName(ctx context.Context, name string) (ElementSet, error) {
	if err := ctx.Err(); err != nil {
		return ElementSet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, set := range s.sets {
		if set.Name == name {
			return set, nil
		}
	}
	return ElementSet{}, ErrNotFound
}

// FindElementByName fetches an element by set and element name.
func (s *MemoryStore) FindElementByName(ctx context.Context, setName, elementName string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return Element{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, set := range s.sets {
		if set.Name != setName {
			continue
		}
		for _, el := range s.elements {
			if el.ElementSetID == set.ID && el.Name == elementName {
				return el, nil
			}
		}
	}
	return Element{}, ErrNotFound
}

// InsertElementSet creates a set and its elements.
func (s *MemoryStore) InsertElementSet(ctx context.Context, set ElementSet, elements []Element) (ElementSet, error) {
	if err := ctx.Err(); err != nil {
		return ElementSet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sets {
		if existing.Name == set.Name {
			return ElementSet{}, ErrConflict
		}
	}
	set.ID = s.id()
	s.sets[set.ID] = set
	for i, el := range elements {
		el.ID = s.id()
		el.ElementSetID = set.ID
		if el.Order == 0 {
			el.Order = i + 1
		}
		s.elements[el.ID] = el
	}
	return set, nil
}

// DeleteElementSet removes a set, its elements and every text under them.
func (s *MemoryStore) DeleteElementSet(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[id]; !ok {
		return ErrNotFound
	}
	delete(s.sets, id)
	for elID, el := range s.elements {
		if el.ElementSetID != id {
			continue
		}
		delete(s.elements, elID)
		for textID, t := range s.texts {
			if t.ElementID == elID {
				delete(s.texts, textID)
			}
		}
	}
	return nil
}

// RecordTypeID resolves a record type name to its ID.
func (s *MemoryStore) RecordTypeID(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.recordTypes[name]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// ItemIDs streams item IDs page by page, taking the read lock per page only.
func (s *MemoryStore) ItemIDs(ctx context.Context) ItemCursor {
	s.mu.RLock()
	pageSize := s.pageSize
	s.mu.RUnlock()
	return newPagedCursor(ctx, pageSize, s.itemIDPage)
}

func (s *MemoryStore) itemIDPage(ctx context.Context, after int64, limit int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ TextReplacer = (*MemoryStore)(nil)
)
