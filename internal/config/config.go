// Package config loads the scroll-demo process configuration from defaults,
// an optional config file, SCROLL_* environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/scroll-pager/pkg/logging"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. SCROLL_FEED_URL.
const EnvPrefix = "SCROLL"

// Config is the resolved process configuration.
type Config struct {
	LogLevel  logging.LogLevel
	LogPretty bool

	// FeedURL selects the HTTP feed; empty means the synthetic source.
	FeedURL    string
	UserAgent  string
	Revalidate bool

	// RedisAddr enables the page response cache for the HTTP feed.
	RedisAddr string

	ItemsPerPage    int
	ThresholdPixels int
	FetchTimeout    time.Duration
	Backoff         bool

	ClientHeight float64
	RowHeight    float64

	// Steps is the number of scroll steps the demo performs.
	Steps int
	// StepPixels is the scroll distance per step.
	StepPixels float64
	// TotalItems bounds the synthetic source; zero means unbounded.
	TotalItems int

	// MetricsAddr serves /metrics and /health when set.
	MetricsAddr string
}

// flagKeys maps command flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-pretty":    "log.pretty",
	"feed-url":      "feed.url",
	"user-agent":    "feed.user_agent",
	"revalidate":    "feed.revalidate",
	"redis-addr":    "redis.addr",
	"per-page":      "pager.items_per_page",
	"threshold":     "pager.threshold_pixels",
	"fetch-timeout": "pager.fetch_timeout",
	"backoff":       "pager.backoff",
	"client-height": "viewport.client_height",
	"row-height":    "viewport.row_height",
	"steps":         "demo.steps",
	"step-pixels":   "demo.step_pixels",
	"total-items":   "demo.total_items",
	"metrics-addr":  "metrics.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.pretty", false)
	v.SetDefault("feed.user_agent", "scroll-pager/0.1.0")
	v.SetDefault("feed.revalidate", false)
	v.SetDefault("pager.items_per_page", 10)
	v.SetDefault("pager.threshold_pixels", 200)
	v.SetDefault("pager.fetch_timeout", 10*time.Second)
	v.SetDefault("pager.backoff", false)
	v.SetDefault("viewport.client_height", 600.0)
	v.SetDefault("viewport.row_height", 100.0)
	v.SetDefault("demo.steps", 20)
	v.SetDefault("demo.step_pixels", 300.0)
	v.SetDefault("demo.total_items", 0)
}

// Load resolves the configuration. configFile may be empty. Flags that were
// not set on the command line do not override file or environment values.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	level, err := logging.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:        level,
		LogPretty:       v.GetBool("log.pretty"),
		FeedURL:         v.GetString("feed.url"),
		UserAgent:       v.GetString("feed.user_agent"),
		Revalidate:      v.GetBool("feed.revalidate"),
		RedisAddr:       v.GetString("redis.addr"),
		ItemsPerPage:    v.GetInt("pager.items_per_page"),
		ThresholdPixels: v.GetInt("pager.threshold_pixels"),
		FetchTimeout:    v.GetDuration("pager.fetch_timeout"),
		Backoff:         v.GetBool("pager.backoff"),
		ClientHeight:    v.GetFloat64("viewport.client_height"),
		RowHeight:       v.GetFloat64("viewport.row_height"),
		Steps:           v.GetInt("demo.steps"),
		StepPixels:      v.GetFloat64("demo.step_pixels"),
		TotalItems:      v.GetInt("demo.total_items"),
		MetricsAddr:     v.GetString("metrics.addr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the demo cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.ClientHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport.client_height must be positive (got %v)", c.ClientHeight))
	}
	if c.RowHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport.row_height must be positive (got %v)", c.RowHeight))
	}
	if c.ThresholdPixels < 0 {
		errs = append(errs, fmt.Errorf("pager.threshold_pixels must not be negative (got %d)", c.ThresholdPixels))
	}
	if c.Steps < 0 {
		errs = append(errs, fmt.Errorf("demo.steps must not be negative (got %d)", c.Steps))
	}
	if c.TotalItems < 0 {
		errs = append(errs, fmt.Errorf("demo.total_items must not be negative (got %d)", c.TotalItems))
	}
	if c.FeedURL != "" {
		u, err := url.Parse(c.FeedURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("feed.url must be an http(s) url (got %q)", c.FeedURL))
		}
		if c.UserAgent == "" {
			errs = append(errs, errors.New("feed.user_agent is required with feed.url"))
		}
	}
	if c.RedisAddr != "" && c.FeedURL == "" {
		errs = append(errs, errors.New("redis.addr requires feed.url"))
	}

	return errors.Join(errs...)
}
