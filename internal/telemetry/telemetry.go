// Package telemetry unifies OpenTelemetry tracing and Prometheus metrics for
// the report service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	reportViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_views_total",
			Help: "Total number of report views built, labeled by category and outcome.",
		},
		[]string{"category", "outcome"},
	)

	reportViewDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reports_view_duration_seconds",
			Help:    "Histogram of view build latencies including artifact fetches.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"category"},
	)

	reportArtifactFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_artifact_fetches_total",
			Help: "Total number of artifact fetches, labeled by category and outcome.",
		},
		[]string{"category", "outcome"},
	)

	reportExcludedBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_excluded_batches_total",
			Help: "Total number of artifacts left out of an aggregate, labeled by reason.",
		},
		[]string{"category", "reason"},
	)

	reportExcludedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_excluded_rows_total",
			Help: "Total number of rows a dimension could not classify, labeled by reason.",
		},
		[]string{"category", "dimension", "reason"},
	)

	reportCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_cache_lookups_total",
			Help: "Total number of artifact cache lookups, labeled by kind and result.",
		},
		[]string{"kind", "result"},
	)

	reportPrecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_precompute_views_total",
			Help: "Total number of views processed by precompute runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)
)

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveView records one view build. outcome is "ok", "no_data",
// "not_found" or "error".
func ObserveView(category, outcome string, duration time.Duration) {
	reportViewsTotal.WithLabelValues(category, outcome).Inc()
	reportViewDurationSeconds.WithLabelValues(category).Observe(duration.Seconds())
}

// ObserveArtifactFetch records the outcome of fetching one artifact.
func ObserveArtifactFetch(category, outcome string) {
	reportArtifactFetchesTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveExcludedBatches adds n excluded artifacts for reason.
func ObserveExcludedBatches(category, reason string, n int) {
	if n <= 0 {
		return
	}
	reportExcludedBatchesTotal.WithLabelValues(category, reason).Add(float64(n))
}

// ObserveExcludedRows adds n rows a dimension excluded for reason.
func ObserveExcludedRows(category, dimension, reason string, n int) {
	if n <= 0 {
		return
	}
	reportExcludedRowsTotal.WithLabelValues(category, dimension, reason).Add(float64(n))
}

// ObserveCache records a cache lookup for kind ("listing" or "table").
func ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	reportCacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// ObservePrecompute records one view processed by a precompute run.
func ObservePrecompute(outcome string) {
	reportPrecomputeTotal.WithLabelValues(outcome).Inc()
}
