package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for controller operations.
var (
	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scroll_page_fetches_total",
		Help: "Total page requests by result",
	}, []string{"result"}) // "success", "failure"

	pageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scroll_page_fetch_duration_seconds",
		Help:    "Page request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	itemsLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scroll_items_loaded_total",
		Help: "Total items appended to accumulated lists",
	})

	scrollEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scroll_events_total",
		Help: "Scroll evaluations by decision",
	}, []string{"decision"}) // "load", "skip_loading", "skip_distance"

	fetchSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scroll_fetch_suppressed_total",
		Help: "Page requests suppressed by the failure policy",
	})
)
