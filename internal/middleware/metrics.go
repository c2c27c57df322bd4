package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// counters for the report API; scan* fields only move on POST /v1/scans.
var (
	requestsTotal    atomic.Uint64
	requestsInFlight atomic.Int64
	requestsFailed   atomic.Uint64

	scansTotal    atomic.Uint64
	scansRunning  atomic.Int64
	scansFailed   atomic.Uint64
	checksSkipped atomic.Uint64
	lastScore     atomic.Int64
	lastHigh      atomic.Int64
	lastFinished  atomic.Int64 // unix seconds, 0 = never

	startTime = time.Now()
)

func init() {
	lastScore.Store(-1)
}

// ScanStats is the scan half of the metrics document.
type ScanStats struct {
	Total         uint64 `json:"total"`
	Running       int64  `json:"running"`
	Failed        uint64 `json:"failed"`
	ChecksSkipped uint64 `json:"checks_skipped"`
	LastScore     int64  `json:"last_score"` // -1 until the first scan finishes
	LastHigh      int64  `json:"last_high"`
	LastFinished  int64  `json:"last_finished_unix,omitempty"`
}

// Snapshot is what GET /metrics returns.
type Snapshot struct {
	RequestsTotal    uint64    `json:"requests_total"`
	RequestsInFlight int64     `json:"requests_in_flight"`
	RequestsFailed   uint64    `json:"requests_failed"`
	Scans            ScanStats `json:"scans"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
	Goroutines       int       `json:"goroutines"`
	AllocBytes       uint64    `json:"alloc_bytes"`
}

// ScanStarted marks a triggered scan; call the returned func when it ends.
func ScanStarted() (done func(failed bool)) {
	scansTotal.Add(1)
	scansRunning.Add(1)
	return func(failed bool) {
		scansRunning.Add(-1)
		if failed {
			scansFailed.Add(1)
		}
	}
}

// RecordRun stores the outcome of a finished scan
func RecordRun(score, high, skipped int) {
	checksSkipped.Add(uint64(skipped))
	lastScore.Store(int64(score))
	lastHigh.Store(int64(high))
	lastFinished.Store(time.Now().Unix())
}

// GetMetrics returns current metrics
func GetMetrics() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Snapshot{
		RequestsTotal:    requestsTotal.Load(),
		RequestsInFlight: requestsInFlight.Load(),
		RequestsFailed:   requestsFailed.Load(),
		Scans: ScanStats{
			Total:         scansTotal.Load(),
			Running:       scansRunning.Load(),
			Failed:        scansFailed.Load(),
			ChecksSkipped: checksSkipped.Load(),
			LastScore:     lastScore.Load(),
			LastHigh:      lastHigh.Load(),
			LastFinished:  lastFinished.Load(),
		},
		UptimeSeconds: time.Since(startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		AllocBytes:    m.Alloc,
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsTotal.Add(1)
		requestsInFlight.Add(1)
		defer requestsInFlight.Add(-1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusBadRequest {
			requestsFailed.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
