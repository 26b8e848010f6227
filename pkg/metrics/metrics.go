// Package metrics provides Prometheus metrics for glidetables.
//
// # Overview
//
// All collectors are registered with the default registry through promauto,
// so a process that exposes promhttp picks them up without extra wiring.
//
// # Basic Usage
//
//	// Record a finished request
//	metrics.ObserveRequest(http.MethodPost, 200, time.Since(start))
//
//	// Record mutated rows
//	metrics.RowsMutated.WithLabelValues(metrics.OpAdd).Add(float64(len(rows)))
//
// # Metric Types
//
// Counter: requests, rows, chunks and stash appends
// Histogram: request latency and rate limiter delay in seconds
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels
const (
	OpAdd       = "add"
	OpOverwrite = "overwrite"
	OpCreate    = "create"
	OpStash     = "stash"
)

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	// RequestsTotal counts HTTP requests by method and status class (2xx, 4xx, 5xx, error).
	//
	// Example:
	//	metrics.RequestsTotal.WithLabelValues("POST", "2xx").Inc()
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glidetables_requests_total",
			Help: "Total number of HTTP requests sent to the Glide API",
		},
		[]string{"method", "status_class"},
	)

	// RequestDuration tracks request latency in seconds
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "glidetables_request_duration_seconds",
			Help: "HTTP request latency in seconds",
			Buckets: []float64{
				0.01, // 10ms
				0.05, // 50ms
				0.1,  // 100ms
				0.25,
				0.5,
				1,
				2.5,
				5,
				10,
				30, // large stash commits
			},
		},
		[]string{"method"},
	)

	// RowsMutated counts rows accepted by the server, by operation
	RowsMutated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glidetables_rows_mutated_total",
			Help: "Total number of rows accepted by the server",
		},
		[]string{"operation"},
	)

	// ChunksDispatched counts chunk requests by operation and result.
	// A chunk that never started because an earlier one failed is counted as skipped.
	ChunksDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glidetables_chunks_dispatched_total",
			Help: "Total number of chunk requests by result",
		},
		[]string{"operation", "result"},
	)

	// StashAppends counts stash append requests by result
	StashAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glidetables_stash_appends_total",
			Help: "Total number of stash append requests by result",
		},
		[]string{"result"},
	)

	// RateLimitDelay tracks how long requests were held back by the client side rate limiter
	RateLimitDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glidetables_rate_limit_delay_seconds",
			Help:    "Time requests spent waiting for the client side rate limiter",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// StatusClass maps an HTTP status code to its label value. Zero means the request never got a response.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// ObserveRequest records one finished request
func ObserveRequest(method string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, StatusClass(status)).Inc()
	RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Result returns ResultSuccess or ResultFailure for err
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// Timer measures an operation from creation to Stop.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
//
// Example:
//
//	timer := metrics.NewTimer()
//	resp, err := doRequest()
//	metrics.ObserveRequest("POST", resp.StatusCode, timer.Stop())
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It can be called more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
