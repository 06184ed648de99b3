package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/scroll-pager/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scroll_ratelimit_remaining",
		Help: "Requests remaining in the current feed quota window",
	}, []string{"source"})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scroll_ratelimit_blocks_total",
		Help: "Total number of page requests blocked by an exhausted quota",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scroll_ratelimit_throttles_total",
		Help: "Total number of page requests delayed by a low quota",
	})
)

// ErrRateLimited is returned by Wait while the quota is exhausted.
var ErrRateLimited = errors.New("rate limited")

// unixThreshold separates X-RateLimit-Reset timestamps from delta seconds.
const unixThreshold = 1_000_000_000

// Tracker keeps the quota state of one feed source. With a Redis client the
// state is shared by every tracker of the same source.
type Tracker struct {
	config Config
	redis  *redis.Client
	source string
	logger zerolog.Logger

	mu    sync.Mutex
	local State

	now func() time.Time
}

// NewTracker creates a tracker for source. redisClient may be nil.
func NewTracker(cfg Config, redisClient *redis.Client, source string) *Tracker {
	return &Tracker{
		config: cfg.withDefaults(),
		redis:  redisClient,
		source: source,
		logger: logging.NewLogger("ratelimit").With().Str("source", source).Logger(),
		now:    time.Now,
	}
}

func (t *Tracker) key() string {
	return KeyPrefix + ":" + t.source
}

// State returns the current quota state.
func (t *Tracker) State(ctx context.Context) (State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.local, nil
	}

	data, err := t.redis.Get(ctx, t.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("redis get: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode quota state: %w", err)
	}
	return s, nil
}

// UpdateFromResponse records the quota announced by resp. Responses without
// quota headers leave the state unchanged.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	now := t.now()

	s, ok, err := parseHeaders(resp.Header, now)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		if retryAt, found := parseRetryAfter(resp.Header.Get("Retry-After"), now); found {
			s = State{Remaining: 0, ResetAt: retryAt}
			ok = true
		}
	}
	if !ok {
		return nil
	}
	s.LastUpdate = now

	if err := t.store(ctx, s, now); err != nil {
		return err
	}

	rateLimitRemaining.WithLabelValues(t.source).Set(float64(s.Remaining))

	switch decision := t.config.Decide(s, now); decision {
	case Block:
		t.logger.Warn().
			Int("remaining", s.Remaining).
			Time("reset_at", s.ResetAt).
			Msg("Feed quota exhausted - requests will be blocked")
	case Throttle:
		t.logger.Warn().
			Int("remaining", s.Remaining).
			Msg("Feed quota low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", s.Remaining).
			Time("reset_at", s.ResetAt).
			Msg("Feed quota updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, s State, now time.Time) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = s
		t.mu.Unlock()
		return nil
	}

	ttl := s.TimeUntilReset(now)
	if ttl <= 0 {
		return t.redis.Del(ctx, t.key()).Err()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode quota state: %w", err)
	}
	if err := t.redis.Set(ctx, t.key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Wait returns nil when a request may proceed, after the throttle delay if the
// quota is low. It returns an error wrapping ErrRateLimited while the quota is
// exhausted. State lookup errors are logged and do not block.
func (t *Tracker) Wait(ctx context.Context) error {
	s, err := t.State(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Quota state unavailable - allowing request")
		return nil
	}

	now := t.now()
	switch t.config.Decide(s, now) {
	case Block:
		rateLimitBlocksTotal.Inc()
		wait := s.TimeUntilReset(now)
		t.logger.Debug().
			Int("remaining", s.Remaining).
			Dur("wait_duration", wait).
			Msg("Feed quota exhausted - blocking request")
		return fmt.Errorf("%w: quota resets in %s", ErrRateLimited, wait.Round(time.Second))

	case Throttle:
		rateLimitThrottlesTotal.Inc()
		if t.config.ThrottleDelay == 0 {
			return nil
		}
		timer := time.NewTimer(t.config.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// parseHeaders reads X-RateLimit-Remaining and X-RateLimit-Reset.
func parseHeaders(h http.Header, now time.Time) (State, bool, error) {
	remainStr := h.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return State{}, false, nil
	}

	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return State{}, false, fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	resetStr := h.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return State{}, false, fmt.Errorf("X-RateLimit-Reset header missing")
	}
	reset, err := strconv.ParseInt(strings.TrimSpace(resetStr), 10, 64)
	if err != nil {
		return State{}, false, fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}

	resetAt := now.Add(time.Duration(reset) * time.Second)
	if reset >= unixThreshold {
		resetAt = time.Unix(reset, 0)
	}

	return State{Remaining: remain, ResetAt: resetAt}, true, nil
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return time.Time{}, false
		}
		return now.Add(time.Duration(secs) * time.Second), true
	}
	if at, err := http.ParseTime(v); err == nil {
		return at, true
	}
	return time.Time{}, false
}
