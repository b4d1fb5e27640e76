package pdfsearch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pdfsearch/internal/shared/metrics"
	"pdfsearch/internal/shared/telemetry"
)

// Backfill refreshes every item in the archive, one at a time.
type Backfill struct {
	Engine *Engine
	Slots  *SlotResolver
}

// BackfillResult reports what a pass did.
type BackfillResult struct {
	RunID     string
	Items     int
	Refreshed int
	Failed    int
	Records   int
	Duration  time.Duration
}

// Run walks item IDs with a cursor and hydrates a single item per step. A failing item is logged
// and counted; only cursor errors, cancellation and an uninstall during the pass end it early, with
// the partial result. The slot is resolved afresh for every pass.
func (b *Backfill) Run(ctx context.Context) (BackfillResult, error) {
	start := time.Now()
	res := BackfillResult{RunID: uuid.NewString()}
	slot, err := b.Slots.Resolve(ctx)
	if err != nil {
		return res, err
	}

	metrics.IncBackfillRun()
	telemetry.Info("pdfsearch.backfill.start", map[string]any{
		"run_id":     res.RunID,
		"element_id": slot.ElementID,
	})

	cur := b.Engine.Store.ItemIDs(ctx)
	defer cur.Close()

	var runErr error
	for cur.Next() {
		if err := ctx.Err(); err != nil {
			break
		}
		id := cur.ID()
		res.Items++
		refreshed, err := b.refreshOne(ctx, id, slot)
		if err != nil {
			fresh, retry, rerr := b.Slots.Renew(ctx, slot, err)
			switch {
			case rerr != nil:
				runErr = rerr
			case retry:
				slot = fresh
				refreshed, err = b.refreshOne(ctx, id, slot)
			}
		}
		if errors.Is(err, ErrItemGone) {
			// Deleted since the page was read.
			res.Items--
			continue
		}
		metrics.IncBackfillItem(err != nil)
		if err != nil {
			res.Failed++
			telemetry.Error("pdfsearch.backfill.item_failed", map[string]any{
				"run_id":  res.RunID,
				"item_id": id,
				"error":   err.Error(),
			})
			if runErr != nil {
				break
			}
			continue
		}
		res.Refreshed++
		res.Records += refreshed.Records
	}

	err = runErr
	if err == nil {
		err = cur.Err()
	}
	if err == nil {
		err = ctx.Err()
	}
	res.Duration = time.Since(start)

	fields := map[string]any{
		"run_id":      res.RunID,
		"items":       res.Items,
		"refreshed":   res.Refreshed,
		"failed":      res.Failed,
		"records":     res.Records,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("pdfsearch.backfill.aborted", fields)
		return res, err
	}
	telemetry.Info("pdfsearch.backfill.complete", fields)
	return res, nil
}

func (b *Backfill) refreshOne(ctx context.Context, id int64, slot Slot) (RefreshResult, error) {
	item, err := b.Engine.findItem(ctx, id)
	if err != nil {
		return RefreshResult{ItemID: id}, err
	}
	return b.Engine.RefreshItemText(ctx, item, slot)
}
