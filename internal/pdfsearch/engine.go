package pdfsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/shared/metrics"
	"pdfsearch/internal/shared/storage/object"
	"pdfsearch/internal/shared/telemetry"
)

const (
	ElementSetName        = "PDF Search"
	ElementSetDescription = "This element set enables searching on PDF files."
	ElementName           = "Text"
	ElementDescription    = "Text extracted from PDF files belonging to this item."
)

// Engine regenerates the PDF Search::Text records of one item from its current files.
type Engine struct {
	Store      archive.Store
	Files      object.ObjectStore
	Classifier *MimeClassifier
	Extractor  Extractor
}

// RefreshResult summarizes a single item refresh.
type RefreshResult struct {
	ItemID             int64
	Files              int
	PDFs               int
	Records            int
	ExtractionFailures int
}

// RefreshItemText drops every text record the item holds under slot and writes one record per PDF file,
// in the store's file order. Extraction failures degrade to empty or partial text; store failures abort
// the refresh and come back as *StorageError.
func (e *Engine) RefreshItemText(ctx context.Context, item archive.Item, slot Slot) (RefreshResult, error) {
	start := time.Now()
	metrics.IncRefreshStarted()
	res, err := e.refresh(ctx, item, slot)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.ObserveRefreshDurationMs(durationMs)

	fields := map[string]any{
		"item_id":             item.ID,
		"element_id":          slot.ElementID,
		"files":               res.Files,
		"pdfs":                res.PDFs,
		"records":             res.Records,
		"extraction_failures": res.ExtractionFailures,
		"duration_ms":         durationMs,
	}
	if err != nil {
		metrics.IncRefreshFailed()
		fields["error"] = err.Error()
		telemetry.Error("pdfsearch.refresh.failed", fields)
		return res, err
	}
	metrics.IncRefreshCompleted()
	metrics.AddTextRecordsStored(res.Records)
	telemetry.Info("pdfsearch.refresh.complete", fields)
	return res, nil
}

// RefreshItem loads the item by ID and refreshes it. A missing item yields ErrItemGone.
func (e *Engine) RefreshItem(ctx context.Context, itemID int64, slot Slot) (RefreshResult, error) {
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return RefreshResult{ItemID: itemID}, err
	}
	return e.RefreshItemText(ctx, item, slot)
}

// RefreshItemResolved refreshes an item under the slot slots currently resolves to,
// retrying once if that slot was replaced by a reinstall.
func (e *Engine) RefreshItemResolved(ctx context.Context, slots *SlotResolver, itemID int64) (RefreshResult, error) {
	res := RefreshResult{ItemID: itemID}
	err := slots.WithSlot(ctx, func(slot Slot) error {
		var err error
		res, err = e.RefreshItem(ctx, itemID, slot)
		return err
	})
	return res, err
}

// findItem separates "no such item" from store failures; only the former is ErrItemGone.
func (e *Engine) findItem(ctx context.Context, itemID int64) (archive.Item, error) {
	item, err := e.Store.FindItem(ctx, itemID)
	switch {
	case err == nil:
		return item, nil
	case errors.Is(err, archive.ErrNotFound):
		return archive.Item{}, fmt.Errorf("item %d: %w", itemID, ErrItemGone)
	default:
		return archive.Item{}, storageErr("find item", err)
	}
}

func (e *Engine) refresh(ctx context.Context, item archive.Item, slot Slot) (RefreshResult, error) {
	res := RefreshResult{ItemID: item.ID}
	if slot.ElementID == 0 {
		return res, ErrNotInstalled
	}

	if replacer, ok := e.Store.(archive.TextReplacer); ok {
		files, err := e.Store.ListFiles(ctx, item.ID)
		if err != nil {
			return res, storageErr("list files", err)
		}
		texts := make([]archive.ElementText, 0, len(files))
		for _, f := range files {
			res.Files++
			text, ok := e.extractFile(ctx, f, &res)
			if !ok {
				continue
			}
			texts = append(texts, newTextRecord(item.ID, slot, text))
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := replacer.ReplaceElementTexts(ctx, item.ID, slot.ItemRecordTypeID, slot.ElementID, texts); err != nil {
			return res, storageErr("replace element texts", err)
		}
		res.Records = len(texts)
		return res, nil
	}

	// Without a transactional replace, readers may briefly see the item with no texts.
	if _, err := e.Store.DeleteElementTexts(ctx, item.ID, slot.ItemRecordTypeID, []int64{slot.ElementID}); err != nil {
		return res, storageErr("delete element texts", err)
	}
	files, err := e.Store.ListFiles(ctx, item.ID)
	if err != nil {
		return res, storageErr("list files", err)
	}
	for _, f := range files {
		res.Files++
		text, ok := e.extractFile(ctx, f, &res)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := e.Store.InsertElementText(ctx, newTextRecord(item.ID, slot, text)); err != nil {
			return res, storageErr("insert element text", err)
		}
		res.Records++
	}
	return res, nil
}

// extractFile returns the text for a PDF file and false for anything else.
func (e *Engine) extractFile(ctx context.Context, f archive.File, res *RefreshResult) (string, bool) {
	if !e.Classifier.IsPDF(f.MimeBrowser) {
		metrics.IncFileSkipped()
		return "", false
	}
	res.PDFs++
	metrics.IncFileExtracted()

	start := time.Now()
	text, err := e.extract(ctx, f)
	metrics.ObserveExtractionDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		res.ExtractionFailures++
		metrics.IncExtractionFailed()
		fields := map[string]any{
			"item_id":    f.ItemID,
			"file_id":    f.ID,
			"filename":   f.ArchiveFilename,
			"mime":       f.MimeBrowser,
			"text_bytes": len(text),
			"error":      err.Error(),
		}
		var ee *ExtractionError
		if errors.As(err, &ee) && ee.Stderr != "" {
			fields["stderr"] = ee.Stderr
		}
		telemetry.Warn("pdfsearch.extract.failed", fields)
	}
	return text, true
}

func (e *Engine) extract(ctx context.Context, f archive.File) (string, error) {
	path, release, err := e.Files.Localize(ctx, f.ArchiveFilename)
	if err != nil {
		return "", &ExtractionError{Path: f.ArchiveFilename, Err: err}
	}
	defer release()
	return e.Extractor.Extract(ctx, path)
}

func newTextRecord(itemID int64, slot Slot, text string) archive.ElementText {
	return archive.ElementText{
		RecordID:     itemID,
		RecordTypeID: slot.ItemRecordTypeID,
		ElementID:    slot.ElementID,
		HTML:         false,
		Text:         text,
	}
}
