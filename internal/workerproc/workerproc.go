package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"pdfsearch/internal/bootstrap"
	"pdfsearch/internal/pdfsearch"
	"pdfsearch/internal/queue"
	"pdfsearch/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnknownKind indicates a message kind this worker does not handle.
type ErrUnknownKind struct {
	Meta      MessageMeta
	Kind      string
	RequestID string
}

func (e ErrUnknownKind) Error() string { return "unknown message kind " + e.Kind }

// ErrMissingItemID indicates a refresh_item message without an item id.
type ErrMissingItemID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingItemID) Error() string { return "missing item id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	Kind      string
	ItemID    int64
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process " + e.Kind
	}
	return "process " + e.Kind + ": " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Processor runs decoded jobs.
type Processor interface {
	RunBackfill(ctx context.Context) (pdfsearch.BackfillResult, error)
	RefreshItem(ctx context.Context, itemID int64) (pdfsearch.RefreshResult, error)
}

// AppProcessor runs jobs against a bootstrapped App.
type AppProcessor struct {
	App *bootstrap.App
}

func (p AppProcessor) RunBackfill(ctx context.Context) (pdfsearch.BackfillResult, error) {
	return p.App.Backfill.Run(ctx)
}

func (p AppProcessor) RefreshItem(ctx context.Context, itemID int64) (pdfsearch.RefreshResult, error) {
	return p.App.Engine.RefreshItemResolved(ctx, p.App.Slots, itemID)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	switch msg.Kind {
	case queue.KindBackfill:
	case queue.KindRefreshItem:
		if msg.ItemID <= 0 {
			return msg, meta, ErrMissingItemID{Meta: meta, RequestID: msg.RequestID}
		}
	default:
		return msg, meta, ErrUnknownKind{Meta: meta, Kind: msg.Kind, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// IsUnrecoverable reports whether err comes from a payload that will never parse; such messages
// should be deleted rather than redelivered.
func IsUnrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrUnknownKind, ErrMissingItemID:
		return true
	}
	return false
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
// A refresh_item for an item that no longer exists is treated as done.
func HandleMessage(ctx context.Context, proc Processor, body string) error {
	if proc == nil {
		return errors.New("processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	switch msg.Kind {
	case queue.KindBackfill:
		res, err := proc.RunBackfill(ctx)
		if err != nil {
			return ErrProcess{Kind: msg.Kind, RequestID: msg.RequestID, Err: err}
		}
		telemetry.Info("worker.backfill.done", map[string]any{
			"request_id": msg.RequestID,
			"run_id":     res.RunID,
			"items":      res.Items,
			"failed":     res.Failed,
			"records":    res.Records,
		})
		return nil
	case queue.KindRefreshItem:
		if msg.ItemID <= 0 {
			return ErrMissingItemID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
		}
		if _, err := proc.RefreshItem(ctx, msg.ItemID); err != nil {
			if errors.Is(err, pdfsearch.ErrNotInstalled) || errors.Is(err, pdfsearch.ErrItemGone) {
				telemetry.Warn("worker.refresh.skipped", map[string]any{
					"request_id": msg.RequestID,
					"item_id":    msg.ItemID,
					"reason":     err.Error(),
				})
				return nil
			}
			return ErrProcess{Kind: msg.Kind, ItemID: msg.ItemID, RequestID: msg.RequestID, Err: err}
		}
		return nil
	default:
		return ErrUnknownKind{Meta: ComputeMeta(body), Kind: msg.Kind, RequestID: msg.RequestID}
	}
}
