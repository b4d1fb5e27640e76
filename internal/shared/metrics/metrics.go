package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	refreshStartedTotal   atomic.Uint64
	refreshCompletedTotal atomic.Uint64
	refreshFailedTotal    atomic.Uint64

	filesExtractedTotal    atomic.Uint64
	filesSkippedTotal      atomic.Uint64
	extractionFailedTotal  atomic.Uint64
	textRecordsStoredTotal atomic.Uint64

	backfillRunsTotal        atomic.Uint64
	backfillItemsTotal       atomic.Uint64
	backfillItemsFailedTotal atomic.Uint64

	jobsReceivedTotal             atomic.Uint64
	jobsCompletedTotal            atomic.Uint64
	jobsFailedTotal               atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	refreshDuration    = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 120000})
	extractionDuration = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 120000})
)

// IncRefreshStarted increments the started counter.
func IncRefreshStarted() {
	refreshStartedTotal.Add(1)
}

// IncRefreshCompleted increments the completed counter.
func IncRefreshCompleted() {
	refreshCompletedTotal.Add(1)
}

// IncRefreshFailed increments the failed counter.
func IncRefreshFailed() {
	refreshFailedTotal.Add(1)
}

// IncFileExtracted counts a PDF handed to the extractor.
func IncFileExtracted() {
	filesExtractedTotal.Add(1)
}

// IncFileSkipped counts a non-PDF file ignored by a refresh.
func IncFileSkipped() {
	filesSkippedTotal.Add(1)
}

// IncExtractionFailed counts an extraction that degraded to empty or partial text.
func IncExtractionFailed() {
	extractionFailedTotal.Add(1)
}

// AddTextRecordsStored adds n to the stored text records counter.
func AddTextRecordsStored(n int) {
	if n > 0 {
		textRecordsStoredTotal.Add(uint64(n))
	}
}

// IncBackfillRun counts a started backfill pass.
func IncBackfillRun() {
	backfillRunsTotal.Add(1)
}

// IncBackfillItem counts an item visited by a backfill pass.
func IncBackfillItem(failed bool) {
	backfillItemsTotal.Add(1)
	if failed {
		backfillItemsFailedTotal.Add(1)
	}
}

// IncJobsReceived counts a queue message picked up by a worker.
func IncJobsReceived() {
	jobsReceivedTotal.Add(1)
}

// IncJobsCompleted counts a queue message processed and deleted.
func IncJobsCompleted() {
	jobsCompletedTotal.Add(1)
}

// IncJobsFailed counts a queue message left for redelivery.
func IncJobsFailed() {
	jobsFailedTotal.Add(1)
}

// IncJobsDeletedUnrecoverable counts a malformed queue message dropped without processing.
func IncJobsDeletedUnrecoverable() {
	jobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveRefreshDurationMs records a refresh duration in milliseconds.
func ObserveRefreshDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	refreshDuration.Observe(value)
}

// ObserveExtractionDurationMs records a single extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "pdfsearch_refresh_started_total", "Total item text refreshes started", refreshStartedTotal.Load())
	writeCounter(&buf, "pdfsearch_refresh_completed_total", "Total item text refreshes completed", refreshCompletedTotal.Load())
	writeCounter(&buf, "pdfsearch_refresh_failed_total", "Total item text refreshes failed", refreshFailedTotal.Load())
	writeCounter(&buf, "pdfsearch_files_extracted_total", "Total PDF files passed to the extractor", filesExtractedTotal.Load())
	writeCounter(&buf, "pdfsearch_files_skipped_total", "Total non-PDF files skipped", filesSkippedTotal.Load())
	writeCounter(&buf, "pdfsearch_extraction_failed_total", "Total extractions that degraded to empty or partial text", extractionFailedTotal.Load())
	writeCounter(&buf, "pdfsearch_text_records_stored_total", "Total text records written", textRecordsStoredTotal.Load())
	writeCounter(&buf, "pdfsearch_backfill_runs_total", "Total backfill passes started", backfillRunsTotal.Load())
	writeCounter(&buf, "pdfsearch_backfill_items_total", "Total items visited by backfill", backfillItemsTotal.Load())
	writeCounter(&buf, "pdfsearch_backfill_items_failed_total", "Total items whose backfill refresh failed", backfillItemsFailedTotal.Load())
	writeCounter(&buf, "pdfsearch_jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "pdfsearch_jobs_completed_total", "Total queue messages completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "pdfsearch_jobs_failed_total", "Total queue messages failed", jobsFailedTotal.Load())
	writeCounter(&buf, "pdfsearch_jobs_deleted_unrecoverable_total", "Total malformed queue messages dropped", jobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "pdfsearch_refresh_duration_ms", "Item refresh duration in milliseconds", refreshDuration.Snapshot())
	writeHistogram(&buf, "pdfsearch_extraction_duration_ms", "Single file extraction duration in milliseconds", extractionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe stores the value in the first bucket whose bound covers it; buckets are made cumulative on render.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
