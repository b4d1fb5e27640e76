package queue

import (
	"encoding/json"
	"time"
)

// Message kinds understood by the worker.
const (
	KindBackfill    = "backfill"
	KindRefreshItem = "refresh_item"
)

// CurrentVersion is stamped on every message this build produces.
const CurrentVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Kind       string `json:"kind"`
	ItemID     int64  `json:"itemId,omitempty"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewBackfillMessage builds a message asking the worker to run a full backfill pass.
func NewBackfillMessage(requestID string, now time.Time) Message {
	return Message{
		Kind:       KindBackfill,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    CurrentVersion,
	}
}

// NewRefreshItemMessage builds a message asking the worker to refresh one item.
func NewRefreshItemMessage(itemID int64, requestID string, now time.Time) Message {
	return Message{
		Kind:       KindRefreshItem,
		ItemID:     itemID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    CurrentVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
