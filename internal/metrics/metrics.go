// Package metrics exposes Prometheus instrumentation for query execution,
// the result cache and dashboard renders.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecomdash_query_duration_seconds",
			Help:    "Duration of aggregate queries against the database",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"aggregate"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_query_errors_total",
			Help: "Total number of failed aggregate queries",
		},
		[]string{"aggregate", "error_type"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_cache_hits_total",
			Help: "Total number of query results served from cache",
		},
		[]string{"aggregate"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_cache_misses_total",
			Help: "Total number of query results computed on a cache miss",
		},
		[]string{"aggregate"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_cache_invalidations_total",
			Help: "Total number of explicit cache purges",
		},
		[]string{"source"}, // "http", "amqp"
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecomdash_render_duration_seconds",
			Help:    "Duration of a full dashboard render cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"range"},
	)
)

// RecordQuery records the duration of one query execution and its failure, if any.
func RecordQuery(aggregate string, d time.Duration, errorType string) {
	QueryDuration.WithLabelValues(aggregate).Observe(d.Seconds())
	if errorType != "" {
		QueryErrors.WithLabelValues(aggregate, errorType).Inc()
	}
}

func RecordCacheHit(aggregate string) {
	CacheHits.WithLabelValues(aggregate).Inc()
}

func RecordCacheMiss(aggregate string) {
	CacheMisses.WithLabelValues(aggregate).Inc()
}

func RecordInvalidation(source string) {
	CacheInvalidations.WithLabelValues(source).Inc()
}

func RecordRender(dateRange string, d time.Duration) {
	RenderDuration.WithLabelValues(dateRange).Observe(d.Seconds())
}
