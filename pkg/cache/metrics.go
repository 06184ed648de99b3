package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scroll_cache_hits_total",
			Help: "Total number of page cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scroll_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// CacheBytesWritten tracks bytes written to the cache
	CacheBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scroll_cache_written_bytes_total",
			Help: "Total bytes written to the page cache",
		},
	)

	// NotModifiedResponses tracks pages revalidated with 304 Not Modified
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scroll_cache_not_modified_total",
			Help: "Total number of pages revalidated with 304 Not Modified",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scroll_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "load", "save", "drop", "extend"
	)
)
