// Package observability exposes the Prometheus metrics emitted by the
// spatial store, corridor scanner, route optimizer and HTTP surface.
package observability

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

func Init(r prometheus.Registerer, isEnabled bool) {
	enabled.Store(isEnabled)
	if !isEnabled || r == nil {
		return
	}
	initCollectors(r)
}

func Enabled() bool { return enabled.Load() }

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	cacheOpTotal                   *prometheus.CounterVec
	redisOperationDurationSeconds *prometheus.HistogramVec

	storePrefixReadsTotal  *prometheus.CounterVec
	storeFetchFailuresTotal *prometheus.CounterVec
	writeBatchFailuresTotal prometheus.Counter

	corridorHashesHistogram prometheus.Histogram

	optimizeJobsTotal           *prometheus.CounterVec
	optimizeExpansionsHistogram prometheus.Histogram
	optimizeDurationSeconds     prometheus.Histogram

	publishFailuresTotal prometheus.Counter
	weatherDroppedTotal  prometheus.Counter
)

func initCollectors(r prometheus.Registerer) {
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests."},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Duration of HTTP requests in seconds.", Buckets: prometheus.ExponentialBuckets(0.005, 2, 12)},
		[]string{"method", "route", "status"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_op_total", Help: "Count of spatial/routes store operations by op and outcome."},
		[]string{"op", "outcome"},
	)
	redisOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "redis_operation_duration_seconds", Help: "Latency of Redis operations in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 2, 15)},
		[]string{"op"},
	)

	storePrefixReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spatial_prefix_reads_total", Help: "Count of per-prefix spatial reads by index and outcome."},
		[]string{"index", "outcome"},
	)
	storeFetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spatial_fetch_failures_total", Help: "Soft per-prefix fetch failures, elided from results."},
		[]string{"index"},
	)
	writeBatchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "spatial_write_batch_failures_total", Help: "Write-batch group failures."},
	)

	corridorHashesHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "corridor_hashes_count", Help: "Number of geohash prefixes covering a route corridor.", Buckets: prometheus.ExponentialBuckets(1, 2, 12)},
	)

	optimizeJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimize_jobs_total", Help: "Completed optimization jobs by terminal state."},
		[]string{"state"},
	)
	optimizeExpansionsHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimize_expansions_count", Help: "Number of A* node expansions per optimization job.", Buckets: prometheus.ExponentialBuckets(1, 2, 16)},
	)
	optimizeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimize_duration_seconds", Help: "Wall-clock duration of an optimization job.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 14)},
	)

	publishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notification_publish_failures_total", Help: "Failed POSTs to the notification sink."},
	)
	weatherDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "weather_reports_dropped_total", Help: "Weather reports dropped at ingestion for invalid coordinates."},
	)

	r.MustRegister(
		httpRequestsTotal, httpRequestDurationSeconds,
		cacheOpTotal, redisOperationDurationSeconds,
		storePrefixReadsTotal, storeFetchFailuresTotal, writeBatchFailuresTotal,
		corridorHashesHistogram,
		optimizeJobsTotal, optimizeExpansionsHistogram, optimizeDurationSeconds,
		publishFailuresTotal, weatherDroppedTotal,
	)
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !enabled.Load() || httpRequestsTotal == nil {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	if op == "" {
		op = "unknown"
	}
	outcome := "ok"
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		case errors.Is(err, context.Canceled):
			outcome = "canceled"
		default:
			outcome = "error"
		}
	}
	if cacheOpTotal != nil {
		cacheOpTotal.WithLabelValues(op, outcome).Inc()
	}
	if redisOperationDurationSeconds != nil {
		redisOperationDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
	}
}

func ObservePrefixRead(index string, err error) {
	if !enabled.Load() || storePrefixReadsTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if storeFetchFailuresTotal != nil {
			storeFetchFailuresTotal.WithLabelValues(index).Inc()
		}
	}
	storePrefixReadsTotal.WithLabelValues(index, outcome).Inc()
}

func IncWriteBatchFailure() {
	if !enabled.Load() || writeBatchFailuresTotal == nil {
		return
	}
	writeBatchFailuresTotal.Inc()
}

func ObserveCorridorHashCount(n int) {
	if !enabled.Load() || corridorHashesHistogram == nil {
		return
	}
	corridorHashesHistogram.Observe(float64(n))
}

func ObserveOptimizeJob(state string, expansions int, dur time.Duration) {
	if !enabled.Load() {
		return
	}
	if optimizeJobsTotal != nil {
		optimizeJobsTotal.WithLabelValues(state).Inc()
	}
	if optimizeExpansionsHistogram != nil {
		optimizeExpansionsHistogram.Observe(float64(expansions))
	}
	if optimizeDurationSeconds != nil {
		optimizeDurationSeconds.Observe(dur.Seconds())
	}
}

func IncPublishFailure() {
	if !enabled.Load() || publishFailuresTotal == nil {
		return
	}
	publishFailuresTotal.Inc()
}

func IncWeatherDropped() {
	if !enabled.Load() || weatherDroppedTotal == nil {
		return
	}
	weatherDroppedTotal.Inc()
}
