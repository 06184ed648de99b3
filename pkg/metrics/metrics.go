// Package metrics exposes the Prometheus metrics of the scroll-pager packages.
// The metrics themselves are defined next to the code that records them
// (pagination, feed, cache) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer promauto uses in the scroll-pager packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler serves metrics from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Controller Metrics (pkg/pagination):
//   - scroll_page_fetches_total{result} (Counter): Page requests by result (success, failure)
//   - scroll_page_fetch_duration_seconds (Histogram): Page request duration
//   - scroll_items_loaded_total (Counter): Items appended to accumulated lists
//   - scroll_events_total{decision} (Counter): Scroll evaluations by decision (load, skip_distance, skip_loading)
//   - scroll_fetch_suppressed_total (Counter): Requests suppressed by a failure policy
//
// Feed Metrics (pkg/feed):
//   - scroll_feed_requests_total{status} (Counter): Feed requests by HTTP status, "cache" or "network_error"
//   - scroll_feed_request_duration_seconds (Histogram): Feed request duration
//   - scroll_feed_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Cache Metrics (pkg/cache):
//   - scroll_cache_hits_total (Counter): Page cache hits
//   - scroll_cache_misses_total (Counter): Page cache misses
//   - scroll_cache_written_bytes_total (Counter): Bytes written to the page cache
//   - scroll_cache_not_modified_total (Counter): 304 Not Modified responses served from cache
//   - scroll_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Page failure ratio
//   sum(rate(scroll_page_fetches_total{result="failure"}[5m])) /
//   sum(rate(scroll_page_fetches_total[5m]))
//
//   # Share of scroll events that triggered a load
//   rate(scroll_events_total{decision="load"}[5m]) / rate(scroll_events_total[5m])
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(scroll_page_fetch_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   rate(scroll_cache_hits_total[5m]) /
//   (rate(scroll_cache_hits_total[5m]) + rate(scroll_cache_misses_total[5m]))
