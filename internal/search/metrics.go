package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search engine operations",
		},
		[]string{"operation", "status"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Search operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	searchResultCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_result_count",
			Help:    "Number of results returned per search",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
		},
	)

	searchCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Cache hits and misses for cached search listings",
		},
		[]string{"listing", "result"},
	)
)

// observeOperation records the outcome and latency of one engine operation.
func observeOperation(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	searchRequestsTotal.WithLabelValues(operation, status).Inc()
	searchDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
