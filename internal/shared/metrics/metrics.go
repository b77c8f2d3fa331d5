package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	sessionsStartedTotal   atomic.Uint64
	sessionsFailedTotal    atomic.Uint64
	invoicesCompletedTotal atomic.Uint64
	invoicesFailedTotal    atomic.Uint64

	reconcileJobsReceived      atomic.Uint64
	reconcileJobsCompleted     atomic.Uint64
	reconcileJobsFailed        atomic.Uint64
	reconcileJobsUnrecoverable atomic.Uint64

	reconcileDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncSessionsStarted increments the session-started counter.
func IncSessionsStarted() {
	sessionsStartedTotal.Add(1)
}

// IncInvoicesCompleted increments the per-record completed counter.
func IncInvoicesCompleted() {
	invoicesCompletedTotal.Add(1)
}

// IncInvoicesFailed increments the per-record failed counter.
func IncInvoicesFailed() {
	invoicesFailedTotal.Add(1)
}

// IncSessionsFailed increments the session-failed counter.
func IncSessionsFailed() {
	sessionsFailedTotal.Add(1)
}

// IncReconcileJobsReceived increments the worker queue-message counter.
func IncReconcileJobsReceived() {
	reconcileJobsReceived.Add(1)
}

// IncReconcileJobsCompleted increments the worker completed-message counter.
func IncReconcileJobsCompleted() {
	reconcileJobsCompleted.Add(1)
}

// IncReconcileJobsFailed increments the worker failed-message counter.
func IncReconcileJobsFailed() {
	reconcileJobsFailed.Add(1)
}

// IncReconcileJobsDeletedUnrecoverable counts messages dropped because they
// can never be processed.
func IncReconcileJobsDeletedUnrecoverable() {
	reconcileJobsUnrecoverable.Add(1)
}

// ObserveReconcileDurationMs records one reconciliation pass in milliseconds.
func ObserveReconcileDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	reconcileDuration.Observe(value)
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
	writeCounter(&buf, "extraction_sessions_started_total", "Total extraction sessions started", sessionsStartedTotal.Load())
	writeCounter(&buf, "extraction_sessions_failed_total", "Total extraction sessions failed at start", sessionsFailedTotal.Load())
	writeCounter(&buf, "invoices_completed_total", "Total invoice records completed", invoicesCompletedTotal.Load())
	writeCounter(&buf, "invoices_failed_total", "Total invoice records failed", invoicesFailedTotal.Load())
	writeCounter(&buf, "reconcile_jobs_received_total", "Total reconcile queue messages received", reconcileJobsReceived.Load())
	writeCounter(&buf, "reconcile_jobs_completed_total", "Total reconcile queue messages completed", reconcileJobsCompleted.Load())
	writeCounter(&buf, "reconcile_jobs_failed_total", "Total reconcile queue messages failed", reconcileJobsFailed.Load())
	writeCounter(&buf, "reconcile_jobs_deleted_unrecoverable_total", "Total reconcile queue messages dropped as unrecoverable", reconcileJobsUnrecoverable.Load())
	writeHistogram(&buf, "reconcile_duration_ms", "Session reconciliation duration in milliseconds", reconcileDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
