// Package ratelimit tracks the request quota a feed announces in its response
// headers and gates page requests before the quota runs out.
//
// Recognized headers are X-RateLimit-Remaining and X-RateLimit-Reset (seconds
// until reset, or a Unix timestamp), and Retry-After on 429 and 503 responses.
package ratelimit

import (
	"time"
)

// KeyPrefix prefixes the Redis keys of shared quota state.
const KeyPrefix = "scroll:ratelimit"

// Config holds the quota thresholds.
type Config struct {
	// BlockBelow blocks requests while fewer requests than this remain
	// (default: 1).
	BlockBelow int

	// ThrottleBelow delays requests by ThrottleDelay while fewer requests than
	// this remain (default: 5).
	ThrottleBelow int

	// ThrottleDelay is the delay applied in the throttled state (default: 1s).
	ThrottleDelay time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		BlockBelow:    1,
		ThrottleBelow: 5,
		ThrottleDelay: 1 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.BlockBelow <= 0 {
		c.BlockBelow = 1
	}
	if c.ThrottleBelow < c.BlockBelow {
		c.ThrottleBelow = c.BlockBelow
	}
	if c.ThrottleDelay < 0 {
		c.ThrottleDelay = 0
	}
	return c
}

// State is the last quota announced by a feed.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets. A zero ResetAt means the feed never
	// announced a quota.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was last updated from a response.
	LastUpdate time.Time `json:"last_update"`
}

// Known reports whether the state describes a window still open at now.
func (s State) Known(now time.Time) bool {
	return !s.ResetAt.IsZero() && now.Before(s.ResetAt)
}

// TimeUntilReset returns the duration until the window resets, or 0 if it
// already has.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale reports whether the state is older than maxAge at now.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// Decision is the outcome of checking a State against a Config.
type Decision int

const (
	// Allow lets the request proceed immediately.
	Allow Decision = iota
	// Throttle lets the request proceed after Config.ThrottleDelay.
	Throttle
	// Block rejects the request until the window resets.
	Block
)

// String returns the decision name used in logs.
func (d Decision) String() string {
	switch d {
	case Throttle:
		return "throttle"
	case Block:
		return "block"
	default:
		return "allow"
	}
}

// Decide classifies s at now. An expired or unknown window always allows.
func (c Config) Decide(s State, now time.Time) Decision {
	if !s.Known(now) {
		return Allow
	}
	switch {
	case s.Remaining < c.BlockBelow:
		return Block
	case s.Remaining < c.ThrottleBelow:
		return Throttle
	default:
		return Allow
	}
}
