package ratelimit

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BlockBelow != 1 {
		t.Errorf("BlockBelow = %d, want 1", cfg.BlockBelow)
	}
	if cfg.ThrottleBelow != 5 {
		t.Errorf("ThrottleBelow = %d, want 5", cfg.ThrottleBelow)
	}
	if cfg.ThrottleDelay != time.Second {
		t.Errorf("ThrottleDelay = %v, want 1s", cfg.ThrottleDelay)
	}
}

func TestConfig_withDefaults(t *testing.T) {
	cfg := Config{BlockBelow: 3, ThrottleBelow: 2, ThrottleDelay: -time.Second}.withDefaults()

	if cfg.ThrottleBelow != 3 {
		t.Errorf("ThrottleBelow = %d, want raised to BlockBelow 3", cfg.ThrottleBelow)
	}
	if cfg.ThrottleDelay != 0 {
		t.Errorf("ThrottleDelay = %v, want 0", cfg.ThrottleDelay)
	}

	if got := (Config{}).withDefaults().BlockBelow; got != 1 {
		t.Errorf("BlockBelow = %d, want 1", got)
	}
}

func TestConfig_Decide(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	open := now.Add(time.Minute)

	tests := []struct {
		name  string
		state State
		want  Decision
	}{
		{"unknown window", State{}, Allow},
		{"healthy", State{Remaining: 100, ResetAt: open}, Allow},
		{"at throttle threshold", State{Remaining: 5, ResetAt: open}, Allow},
		{"low", State{Remaining: 4, ResetAt: open}, Throttle},
		{"last request", State{Remaining: 1, ResetAt: open}, Throttle},
		{"exhausted", State{Remaining: 0, ResetAt: open}, Block},
		{"exhausted but reset", State{Remaining: 0, ResetAt: now}, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Decide(tt.state, now); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		resetAt time.Time
		want    time.Duration
	}{
		{"future", now.Add(30 * time.Second), 30 * time.Second},
		{"past", now.Add(-time.Second), 0},
		{"zero", time.Time{}, 0},
	}

	for _, tt := range tests {
		s := State{ResetAt: tt.resetAt}
		if got := s.TimeUntilReset(now); got != tt.want {
			t.Errorf("%s: TimeUntilReset() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestState_IsStale(t *testing.T) {
	now := time.Now()
	s := State{LastUpdate: now.Add(-10 * time.Minute)}

	if !s.IsStale(now, 5*time.Minute) {
		t.Error("IsStale() = false for 10m old state, want true")
	}
	if s.IsStale(now, 15*time.Minute) {
		t.Error("IsStale() = true within max age, want false")
	}
}

func TestDecision_String(t *testing.T) {
	for d, want := range map[Decision]string{Allow: "allow", Throttle: "throttle", Block: "block"} {
		if got := d.String(); got != want {
			t.Errorf("Decision(%d).String() = %q, want %q", d, got, want)
		}
	}
}
