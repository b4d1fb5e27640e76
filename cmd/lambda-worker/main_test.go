package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"pdfsearch/internal/pdfsearch"
	"pdfsearch/internal/queue"
)

type fakeProcessor struct {
	failItem int64
}

func (f fakeProcessor) RunBackfill(ctx context.Context) (pdfsearch.BackfillResult, error) {
	return pdfsearch.BackfillResult{}, nil
}

func (f fakeProcessor) RefreshItem(ctx context.Context, itemID int64) (pdfsearch.RefreshResult, error) {
	if itemID == f.failItem {
		return pdfsearch.RefreshResult{}, errors.New("db down")
	}
	return pdfsearch.RefreshResult{ItemID: itemID}, nil
}

func body(t *testing.T, m queue.Message) string {
	t.Helper()
	b, err := queue.EncodeMessage(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

func TestProcessRecordsReportsOnlyRetryableFailures(t *testing.T) {
	now := time.Now()
	records := []events.SQSMessage{
		{MessageId: "ok", Body: body(t, queue.NewRefreshItemMessage(1, "r", now))},
		{MessageId: "retry", Body: body(t, queue.NewRefreshItemMessage(2, "r", now))},
		{MessageId: "garbage", Body: "{nope"},
		{MessageId: "backfill", Body: body(t, queue.NewBackfillMessage("r", now))},
	}

	resp := processRecords(context.Background(), fakeProcessor{failItem: 2}, records)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "retry" {
		t.Fatalf("unexpected failures %+v", resp.BatchItemFailures)
	}
}
