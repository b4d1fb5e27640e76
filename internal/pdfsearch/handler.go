package pdfsearch

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/hooks"
	"pdfsearch/internal/queue"
	"pdfsearch/internal/shared/server/middleware"
	"pdfsearch/internal/shared/server/respond"
	"pdfsearch/internal/shared/telemetry"
)

// Handler exposes the operator actions and the host event webhooks over HTTP.
type Handler struct {
	Hooks    *hooks.Registry
	Engine   *Engine
	Backfill *Backfill
	Slots    *SlotResolver
	// Queue, when set, takes backfill requests instead of running them inline.
	Queue queue.Client
}

// RegisterRoutes attaches admin and webhook routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin/pdf-search")
	admin.POST("/install", h.install)
	admin.DELETE("/install", h.uninstall)
	admin.POST("/backfill", h.backfill)
	admin.POST("/items/:id/refresh", h.refreshItem)
	admin.GET("/items/:id/texts", h.itemTexts)

	rg.POST("/hooks/after-save-item", h.afterSaveItem)
	rg.POST("/hooks/after-delete-file", h.afterDeleteFile)
}

func (h *Handler) install(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Hooks.Fire(ctx, hooks.Install, nil); err != nil {
		writeError(c, err)
		return
	}
	slot, err := h.Slots.Get(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, gin.H{
		"elementSet":       ElementSetName,
		"element":          ElementName,
		"elementId":        slot.ElementID,
		"itemRecordTypeId": slot.ItemRecordTypeID,
	})
}

func (h *Handler) uninstall(c *gin.Context) {
	if err := h.Hooks.Fire(c.Request.Context(), hooks.Uninstall, nil); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) backfill(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.RequestIDFromContext(c)

	if h.Queue != nil {
		if _, err := h.Slots.Get(ctx); err != nil {
			writeError(c, err)
			return
		}
		msg := queue.NewBackfillMessage(requestID, time.Now())
		if err := h.Queue.Send(ctx, msg); err != nil {
			writeError(c, err)
			return
		}
		telemetry.Info("pdfsearch.backfill.enqueued", map[string]any{"request_id": requestID})
		respond.Accepted(c, gin.H{"status": "queued", "requestId": requestID})
		return
	}

	res, err := h.Backfill.Run(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"status":     "completed",
		"runId":      res.RunID,
		"items":      res.Items,
		"refreshed":  res.Refreshed,
		"failed":     res.Failed,
		"records":    res.Records,
		"durationMs": res.Duration.Milliseconds(),
	})
}

func (h *Handler) refreshItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	res, err := h.Engine.RefreshItemResolved(c.Request.Context(), h.Slots, id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"itemId":             res.ItemID,
		"files":              res.Files,
		"pdfs":               res.PDFs,
		"records":            res.Records,
		"extractionFailures": res.ExtractionFailures,
	})
}

type textResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func (h *Handler) itemTexts(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	slot, err := h.Slots.Get(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.Engine.findItem(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	rows, err := h.Engine.Store.ListElementTexts(ctx, id, slot.ItemRecordTypeID, slot.ElementID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]textResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, textResponse{
			ID:   r.ID,
			Text: h.Hooks.ApplyFilter(DisplayFilterName, r.Text, hooks.FilterArgs{Admin: true}),
		})
	}
	respond.OK(c, gin.H{"itemId": id, "texts": out})
}

type afterSaveItemRequest struct {
	ItemID int64 `json:"itemId"`
}

func (h *Handler) afterSaveItem(c *gin.Context) {
	var req afterSaveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "itemId is required", nil)
		return
	}
	ctx := c.Request.Context()
	item, err := h.Engine.findItem(ctx, req.ItemID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Hooks.Fire(ctx, hooks.AfterSaveItem, item); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

type afterDeleteFileRequest struct {
	FileID int64 `json:"fileId"`
	ItemID int64 `json:"itemId"`
}

// afterDeleteFile takes the item ID from the payload since the file row is already gone.
func (h *Handler) afterDeleteFile(c *gin.Context) {
	var req afterDeleteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "itemId is required", nil)
		return
	}
	file := archive.File{ID: req.FileID, ItemID: req.ItemID}
	if err := h.Hooks.Fire(c.Request.Context(), hooks.AfterDeleteFile, file); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func itemIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "item id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrConfigConflict):
		respond.Error(c, http.StatusConflict, "config_conflict", err.Error(), nil)
	case errors.Is(err, ErrMissingDependency):
		respond.Error(c, http.StatusPreconditionFailed, "missing_dependency", err.Error(), nil)
	case errors.Is(err, ErrNotInstalled):
		respond.Error(c, http.StatusConflict, "not_installed", "PDF Search is not installed", nil)
	case errors.Is(err, ErrItemGone):
		respond.Error(c, http.StatusNotFound, "not_found", "item not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", gin.H{"cause": err.Error()})
	}
}
