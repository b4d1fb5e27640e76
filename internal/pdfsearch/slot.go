package pdfsearch

import (
	"context"
	"errors"
	"sync"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/shared/telemetry"
)

// Slot identifies where extracted text lives: the PDF Search::Text element and the Item record type.
type Slot struct {
	ElementID        int64
	ItemRecordTypeID int64
}

// SlotSource looks the slot up in the host schema.
type SlotSource interface {
	ResolveSlot(ctx context.Context) (Slot, error)
}

// SlotResolver memoizes the first successful lookup. Failed lookups are retried on the next call.
// Another process can uninstall and reinstall the element set, so a cached slot may go stale;
// Renew and WithSlot recover from that.
type SlotResolver struct {
	Source SlotSource

	mu   sync.Mutex
	slot Slot
	ok   bool
}

// Get returns the cached slot, resolving it on first use.
func (r *SlotResolver) Get(ctx context.Context) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ok {
		return r.slot, nil
	}
	slot, err := r.Source.ResolveSlot(ctx)
	if err != nil {
		return Slot{}, err
	}
	r.slot, r.ok = slot, true
	return slot, nil
}

// Resolve drops the cache and looks the slot up again.
func (r *SlotResolver) Resolve(ctx context.Context) (Slot, error) {
	r.Reset()
	return r.Get(ctx)
}

// Set primes the cache, used right after install.
func (r *SlotResolver) Set(slot Slot) {
	r.mu.Lock()
	r.slot, r.ok = slot, true
	r.mu.Unlock()
}

// Reset forgets the cached slot, used after uninstall.
func (r *SlotResolver) Reset() {
	r.mu.Lock()
	r.slot, r.ok = Slot{}, false
	r.mu.Unlock()
}

// Renew inspects an error seen while using slot. When err shows the element behind slot no longer
// exists, slot is evicted and the current one resolved. retry reports whether the caller should run
// again with fresh. A lookup failure (ErrNotInstalled after an uninstall) comes back as err.
func (r *SlotResolver) Renew(ctx context.Context, slot Slot, failure error) (fresh Slot, retry bool, err error) {
	if !errors.Is(failure, archive.ErrNoElement) {
		return slot, false, nil
	}
	r.mu.Lock()
	if r.ok && r.slot == slot {
		r.slot, r.ok = Slot{}, false
	}
	r.mu.Unlock()
	telemetry.Warn("pdfsearch.slot.stale", map[string]any{"element_id": slot.ElementID})

	fresh, err = r.Get(ctx)
	if err != nil {
		return Slot{}, false, err
	}
	return fresh, fresh != slot, nil
}

// WithSlot runs fn with the cached slot and, if the slot turned out stale, once more with the
// freshly resolved one.
func (r *SlotResolver) WithSlot(ctx context.Context, fn func(Slot) error) error {
	slot, err := r.Get(ctx)
	if err != nil {
		return err
	}
	err = fn(slot)
	if err == nil {
		return nil
	}
	fresh, retry, rerr := r.Renew(ctx, slot, err)
	if rerr != nil {
		return rerr
	}
	if !retry {
		return err
	}
	return fn(fresh)
}
