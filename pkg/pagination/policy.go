package pagination

import (
	"math/rand"
	"sync"
	"time"
)

// FailurePolicy decides whether a page request may start after earlier failures.
// The controller calls it while holding its own lock, so calls for one
// controller are serialized.
type FailurePolicy interface {
	// Allow reports whether a request may start at now.
	Allow(now time.Time) bool

	// RecordSuccess is called after a page was appended.
	RecordSuccess()

	// RecordFailure is called after a page request failed at now.
	RecordFailure(now time.Time)
}

// BackoffConfig holds the configuration for BackoffPolicy.
type BackoffConfig struct {
	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Jitter is the relative randomness applied to each wait (0.2 = ±20%).
	Jitter float64

	// MaxFailures stops all requests after this many consecutive failures
	// until Reset is called. Zero means no cap.
	MaxFailures int
}

// DefaultBackoffConfig returns the default backoff configuration.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// BackoffPolicy suppresses page requests for an exponentially growing window
// after consecutive failures.
type BackoffPolicy struct {
	mu       sync.Mutex
	config   BackoffConfig
	failures int
	retryAt  time.Time
	random   func() float64
}

// NewBackoffPolicy creates a new backoff policy.
func NewBackoffPolicy(config BackoffConfig) *BackoffPolicy {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 1 * time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 1
	}
	if config.Jitter < 0 || config.Jitter >= 1 {
		config.Jitter = 0
	}

	return &BackoffPolicy{
		config: config,
		random: rand.Float64,
	}
}

// Allow implements FailurePolicy.
func (p *BackoffPolicy) Allow(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.MaxFailures > 0 && p.failures >= p.config.MaxFailures {
		return false
	}
	return !now.Before(p.retryAt)
}

// RecordSuccess implements FailurePolicy.
func (p *BackoffPolicy) RecordSuccess() {
	p.Reset()
}

// RecordFailure implements FailurePolicy.
func (p *BackoffPolicy) RecordFailure(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures++

	backoff := p.config.InitialBackoff
	for i := 1; i < p.failures && backoff < p.config.MaxBackoff; i++ {
		backoff = time.Duration(float64(backoff) * p.config.BackoffMultiplier)
	}
	if backoff > p.config.MaxBackoff {
		backoff = p.config.MaxBackoff
	}

	if p.config.Jitter > 0 {
		factor := 1 - p.config.Jitter + p.random()*2*p.config.Jitter
		backoff = time.Duration(float64(backoff) * factor)
	}

	p.retryAt = now.Add(backoff)
}

// Reset clears the failure count and any pending wait.
func (p *BackoffPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures = 0
	p.retryAt = time.Time{}
}

// Failures returns the number of consecutive failures.
func (p *BackoffPolicy) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// RetryAt returns the earliest time a request is allowed again.
func (p *BackoffPolicy) RetryAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retryAt
}
