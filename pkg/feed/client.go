// Package feed provides an HTTP page fetcher for JSON feeds, with optional
// Redis-backed response caching.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/scroll-pager/pkg/cache"
	"github.com/Sternrassler/scroll-pager/pkg/logging"
	"github.com/Sternrassler/scroll-pager/pkg/pagination"
	"github.com/Sternrassler/scroll-pager/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for feed requests.
var (
	feedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scroll_feed_requests_total",
		Help: "Total feed page requests by status",
	}, []string{"status"})

	feedRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scroll_feed_request_duration_seconds",
		Help:    "Feed page request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	feedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scroll_feed_errors_total",
		Help: "Total feed errors by class",
	}, []string{"class"})
)

// maxErrorBody limits how much of an error response is kept in HTTPError.Message.
const maxErrorBody = 512

// Config holds the feed client configuration.
type Config struct {
	// BaseURL is the feed endpoint, may carry its own query (REQUIRED)
	BaseURL string

	// UserAgent header sent with every request (REQUIRED)
	UserAgent string

	// PageParam is the query parameter carrying the page number (default: "page")
	PageParam string

	// PerPageParam is the query parameter carrying the page size (default: "per_page")
	PerPageParam string

	// ItemsField is the envelope field holding items when the response body is
	// an object rather than an array (default: "items")
	ItemsField string

	// Timeout per HTTP request (default: 30s)
	Timeout time.Duration

	// Redis enables the page response cache when set
	Redis *redis.Client

	// Revalidate sends a conditional request for cached pages instead of
	// serving them directly.
	Revalidate bool

	// RateLimit enables quota tracking from response headers when set. The
	// quota state is shared through Redis when Redis is set.
	RateLimit *ratelimit.Config
}

// DefaultConfig returns a default configuration for the feed at baseURL.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:      baseURL,
		UserAgent:    userAgent,
		PageParam:    "page",
		PerPageParam: "per_page",
		ItemsField:   "items",
		Timeout:      30 * time.Second,
	}
}

// Client fetches pages of T from a JSON feed. It implements pagination.PageFetcher.
type Client[T pagination.Item] struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Store
	limiter    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

var _ pagination.PageFetcher[Record] = (*Client[Record])(nil)

// New creates a new feed client.
func New[T pagination.Item](cfg Config) (*Client[T], error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", baseURL.Scheme)
	}

	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.PerPageParam == "" {
		cfg.PerPageParam = "per_page"
	}
	if cfg.ItemsField == "" {
		cfg.ItemsField = "items"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client[T]{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		config:  cfg,
		logger:  logging.NewLogger("feed").With().Str("feed", baseURL.Redacted()).Logger(),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewStore(cfg.Redis)
	}
	if cfg.RateLimit != nil {
		c.limiter = ratelimit.NewTracker(*cfg.RateLimit, cfg.Redis, c.sourceURL())
	}

	return c, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client[T]) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// FetchPage implements pagination.PageFetcher.
func (c *Client[T]) FetchPage(ctx context.Context, page, perPage int) ([]T, error) {
	startTime := time.Now()
	defer func() {
		feedRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := cache.Key{
		Source:  c.sourceURL(),
		Page:    page,
		PerPage: perPage,
		Query:   c.baseURL.Query(),
	}

	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Load(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Int("page", page).Msg("Cache load error")
		}
		cached = entry
	}

	if cached != nil && !c.config.Revalidate {
		c.logger.Debug().Int("page", page).Msg("Serving page from cache")
		feedRequestsTotal.WithLabelValues("cache").Inc()
		return c.decode(cached.Body)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if !errors.Is(err, ratelimit.ErrRateLimited) {
				return nil, err
			}
			feedErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			feedRequestsTotal.WithLabelValues("rate_limited").Inc()
			return nil, &HTTPError{
				ErrorClass: ErrorClassRateLimit,
				Message:    "request blocked",
				Err:        err,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(page, perPage), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if cached.CanRevalidate() {
		cached.Condition(req)
		c.logger.Debug().
			Int("page", page).
			Str("etag", cached.ETag).
			Msg("Making conditional request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		feedErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		feedRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &HTTPError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	feedRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if c.limiter != nil {
		if err := c.limiter.UpdateFromResponse(ctx, resp); err != nil {
			c.logger.Warn().Err(err).Int("page", page).Msg("Failed to update quota state")
		}
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Int("page", page).Msg("304 Not Modified - using cache")

		if cached.Refresh(resp.Header, time.Now()) {
			if err := c.cache.Extend(ctx, cacheKey, cached.Expires); err != nil {
				c.logger.Warn().Err(err).Int("page", page).Msg("Failed to extend cached page")
			}
		}
		return c.decode(cached.Body)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			errClass = ErrorClassServer
		}
		feedErrorsTotal.WithLabelValues(string(errClass)).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := resp.Status
		if len(body) > 0 {
			message = fmt.Sprintf("%s: %s", resp.Status, bytes.TrimSpace(body))
		}

		c.logger.Warn().
			Int("page", page).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Feed request error")

		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    message,
		}
	}

	var body []byte
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		now := time.Now()
		entry, err := cache.Capture(resp, now)
		if err != nil {
			return nil, &HTTPError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
		}
		body = entry.Body

		if entry.Fresh(now) {
			if err := c.cache.Save(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Int("page", page).Msg("Failed to cache page")
			} else {
				c.logger.Debug().
					Int("page", page).
					Dur("ttl", entry.Remaining(now)).
					Msg("Cached page")
			}
		}
	} else {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, &HTTPError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
		}
	}

	items, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("page", page).
		Int("items", len(items)).
		Msg("Fetched page")

	return items, nil
}

// decode parses a JSON array of items or an object holding them in ItemsField.
func (c *Client[T]) decode(body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)

	raw := trimmed
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, c.decodeError(err)
		}
		field, ok := envelope[c.config.ItemsField]
		if !ok {
			return nil, c.decodeError(fmt.Errorf("%w: %q", ErrItemsFieldMissing, c.config.ItemsField))
		}
		raw = field
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, c.decodeError(err)
	}
	return items, nil
}

func (c *Client[T]) decodeError(err error) error {
	feedErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
	return &HTTPError{
		StatusCode: http.StatusOK,
		ErrorClass: ErrorClassDecode,
		Message:    "malformed response",
		Err:        err,
	}
}

// pageURL returns the request URL for a page, preserving the base query.
func (c *Client[T]) pageURL(page, perPage int) string {
	u := *c.baseURL
	query := u.Query()
	query.Set(c.config.PageParam, strconv.Itoa(page))
	query.Set(c.config.PerPageParam, strconv.Itoa(perPage))
	u.RawQuery = query.Encode()
	return u.String()
}

// sourceURL returns the base URL without query or fragment.
func (c *Client[T]) sourceURL() string {
	u := *c.baseURL
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
