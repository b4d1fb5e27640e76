package pdfsearch

import (
	"context"
	"errors"
	"fmt"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/hooks"
	"pdfsearch/internal/shared/telemetry"
)

// Triggers reacts to host mutations that can change an item's file set.
type Triggers struct {
	Engine *Engine
	Slots  *SlotResolver
}

// OnItemSaved refreshes the saved item. The host clears the item's element texts before this runs,
// so the engine's own delete is redundant here but harmless.
func (t *Triggers) OnItemSaved(ctx context.Context, item archive.Item) error {
	return t.Slots.WithSlot(ctx, func(slot Slot) error {
		_, err := t.Engine.RefreshItemText(ctx, item, slot)
		return err
	})
}

// OnFileDeleted refreshes the item that owned file. The host leaves element texts in place on file
// deletion, so the engine's delete is what removes the stale record.
func (t *Triggers) OnFileDeleted(ctx context.Context, file archive.File) error {
	_, err := t.Engine.RefreshItemResolved(ctx, t.Slots, file.ItemID)
	return err
}

// Register wires the lifecycle and mutation handlers plus the display filters into reg.
// Mutation handlers log failures and return nil since the host has no way to report them.
func (t *Triggers) Register(reg *hooks.Registry, lc *Lifecycle) {
	reg.On(hooks.Install, func(ctx context.Context, _ any) error {
		_, err := lc.Install(ctx)
		return err
	})
	reg.On(hooks.Uninstall, func(ctx context.Context, _ any) error {
		return lc.Uninstall(ctx)
	})
	reg.On(hooks.AfterSaveItem, func(ctx context.Context, payload any) error {
		item, ok := payload.(archive.Item)
		if !ok {
			return fmt.Errorf("unexpected payload %T", payload)
		}
		logTriggerErr(hooks.AfterSaveItem, item.ID, 0, t.OnItemSaved(ctx, item))
		return nil
	})
	reg.On(hooks.AfterDeleteFile, func(ctx context.Context, payload any) error {
		file, ok := payload.(archive.File)
		if !ok {
			return fmt.Errorf("unexpected payload %T", payload)
		}
		logTriggerErr(hooks.AfterDeleteFile, file.ItemID, file.ID, t.OnFileDeleted(ctx, file))
		return nil
	})
	RegisterFilters(reg)
}

func logTriggerErr(hook string, itemID, fileID int64, err error) {
	if err == nil {
		return
	}
	fields := map[string]any{"hook": hook, "item_id": itemID}
	if fileID != 0 {
		fields["file_id"] = fileID
	}
	switch {
	case errors.Is(err, ErrNotInstalled):
		telemetry.Warn("pdfsearch.trigger.skipped", fields)
	case errors.Is(err, ErrItemGone):
		// The owning item went away with the file.
		telemetry.Info("pdfsearch.trigger.item_gone", fields)
	default:
		fields["error"] = err.Error()
		telemetry.Error("pdfsearch.trigger.failed", fields)
	}
}
