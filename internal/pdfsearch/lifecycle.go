package pdfsearch

import (
	"context"
	"errors"
	"fmt"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/shared/telemetry"
)

// DependencyProbe reports whether the extraction binary can be run on this host.
type DependencyProbe interface {
	Available() error
}

// Lifecycle provisions and removes the PDF Search element set.
type Lifecycle struct {
	Store archive.Store
	Probe DependencyProbe
	Slots *SlotResolver
}

// Install creates the PDF Search set with its Text element.
// It refuses when a set with that name already exists or the extractor is missing.
func (l *Lifecycle) Install(ctx context.Context) (Slot, error) {
	_, err := l.Store.FindElementSetByName(ctx, ElementSetName)
	switch {
	case err == nil:
		return Slot{}, fmt.Errorf("%w: an element set named %q already exists; delete it before installing", ErrConfigConflict, ElementSetName)
	case !errors.Is(err, archive.ErrNotFound):
		return Slot{}, storageErr("find element set", err)
	}

	if l.Probe != nil {
		if err := l.Probe.Available(); err != nil {
			if !errors.Is(err, ErrMissingDependency) {
				err = fmt.Errorf("%w: %v", ErrMissingDependency, err)
			}
			return Slot{}, err
		}
	}

	set, err := l.Store.InsertElementSet(ctx,
		archive.ElementSet{Name: ElementSetName, Description: ElementSetDescription},
		[]archive.Element{{Name: ElementName, Description: ElementDescription, Order: 1}},
	)
	if err != nil {
		if errors.Is(err, archive.ErrConflict) {
			return Slot{}, fmt.Errorf("%w: an element set named %q already exists", ErrConfigConflict, ElementSetName)
		}
		return Slot{}, storageErr("insert element set", err)
	}

	slot, err := l.ResolveSlot(ctx)
	if err != nil {
		return Slot{}, err
	}
	if l.Slots != nil {
		l.Slots.Set(slot)
	}
	telemetry.Info("pdfsearch.install", map[string]any{
		"element_set_id": set.ID,
		"element_id":     slot.ElementID,
	})
	return slot, nil
}

// Uninstall deletes the PDF Search set. The host cascade removes its element and every text stored under it.
func (l *Lifecycle) Uninstall(ctx context.Context) error {
	set, err := l.Store.FindElementSetByName(ctx, ElementSetName)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return ErrNotInstalled
		}
		return storageErr("find element set", err)
	}
	if err := l.Store.DeleteElementSet(ctx, set.ID); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return ErrNotInstalled
		}
		return storageErr("delete element set", err)
	}
	if l.Slots != nil {
		l.Slots.Reset()
	}
	telemetry.Info("pdfsearch.uninstall", map[string]any{"element_set_id": set.ID})
	return nil
}

// ResolveSlot looks up the Text element and the Item record type.
func (l *Lifecycle) ResolveSlot(ctx context.Context) (Slot, error) {
	el, err := l.Store.FindElementByName(ctx, ElementSetName, ElementName)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return Slot{}, ErrNotInstalled
		}
		return Slot{}, storageErr("find element", err)
	}
	rt, err := l.Store.RecordTypeID(ctx, archive.RecordTypeItem)
	if err != nil {
		return Slot{}, storageErr("find record type", err)
	}
	return Slot{ElementID: el.ID, ItemRecordTypeID: rt}, nil
}
