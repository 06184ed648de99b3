// Command scroll-demo drives a pagination controller with a simulated viewport
// over a synthetic source or an HTTP JSON feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/scroll-pager/internal/config"
	"github.com/Sternrassler/scroll-pager/pkg/feed"
	"github.com/Sternrassler/scroll-pager/pkg/logging"
	"github.com/Sternrassler/scroll-pager/pkg/metrics"
	"github.com/Sternrassler/scroll-pager/pkg/pagination"
	"github.com/Sternrassler/scroll-pager/pkg/ratelimit"
	"github.com/Sternrassler/scroll-pager/pkg/viewport"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "scroll-demo",
		Short: "Scroll through a paginated source with a simulated viewport",
		Long: `scroll-demo attaches a pagination controller to an in-memory viewport and
scrolls it step by step, loading a page whenever the viewport gets within the
threshold of the end of the loaded content.

Without --feed-url the pages come from a synthetic source.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logging.Setup(logging.Config{
				Level:  cfg.LogLevel,
				Pretty: cfg.LogPretty,
				Output: cmd.ErrOrStderr(),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human-readable console logs")
	flags.String("feed-url", "", "HTTP JSON feed to page through (default: synthetic source)")
	flags.String("user-agent", "scroll-pager/0.1.0", "User-Agent sent to the feed")
	flags.Bool("revalidate", false, "revalidate cached pages with conditional requests")
	flags.String("redis-addr", "", "Redis address for the feed page cache")
	flags.Int("per-page", 10, "items per page")
	flags.Int("threshold", 200, "distance to the end in pixels that triggers a load")
	flags.Duration("fetch-timeout", 10*time.Second, "timeout per page request (0 = none)")
	flags.Bool("backoff", false, "back off exponentially after failed page requests")
	flags.Float64("client-height", 600, "viewport height in pixels")
	flags.Float64("row-height", 100, "row height in pixels")
	flags.Int("steps", 20, "number of scroll steps")
	flags.Float64("step-pixels", 300, "pixels scrolled per step")
	flags.Int("total-items", 0, "size of the synthetic source (0 = unbounded)")
	flags.String("metrics-addr", "", "serve /metrics and /health on this address")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := logging.NewLogger("scroll-demo")

	fetcher, cleanup, err := newFetcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	pagerCfg := pagination.Config[feed.Record]{
		Fetcher:         fetcher,
		ItemsPerPage:    cfg.ItemsPerPage,
		ThresholdPixels: cfg.ThresholdPixels,
		FetchTimeout:    cfg.FetchTimeout,
	}
	if cfg.Backoff {
		pagerCfg.FailurePolicy = pagination.NewBackoffPolicy(pagination.DefaultBackoffConfig())
	}

	ctrl, err := pagination.New(pagerCfg)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}
	defer ctrl.Close()

	vp := viewport.New(cfg.ClientHeight, cfg.RowHeight)

	// Subscriber calls are serialized, lastPage needs no lock.
	lastPage := 1
	unsubscribe := ctrl.Subscribe(func(s pagination.State[feed.Record]) {
		if s.Page == lastPage {
			return
		}
		lastPage = s.Page
		vp.SetContentRows(len(s.Items))
		fmt.Fprintf(out, "page %d: +%d items (total %d)\n",
			s.Page-1, len(s.NewlyLoaded), len(s.Items))
	})
	defer unsubscribe()

	if err := ctrl.Attach(vp); err != nil {
		return fmt.Errorf("attach viewport: %w", err)
	}
	ctrl.WaitIdle()

	for step := 0; step < cfg.Steps; step++ {
		if ctx.Err() != nil {
			break
		}
		vp.ScrollBy(cfg.StepPixels)
		ctrl.WaitIdle()

		m := vp.ScrollMetrics()
		logger.Debug().
			Int("step", step+1).
			Float64("scroll_top", m.ScrollTop).
			Float64("distance", m.DistanceToBottom()).
			Msg("Scrolled")
	}

	state := ctrl.State()
	first, last := vp.VisibleRange()
	fmt.Fprintf(out, "loaded %d items, next page %d, visible rows %d-%d\n",
		len(state.Items), state.Page, first, last)

	return ctx.Err()
}

// newFetcher returns the synthetic source or an HTTP feed client, with a
// cleanup function for any connections it opened.
func newFetcher(ctx context.Context, cfg *config.Config) (pagination.PageFetcher[feed.Record], func(), error) {
	if cfg.FeedURL == "" {
		return syntheticSource(cfg.TotalItems), func() {}, nil
	}

	feedCfg := feed.DefaultConfig(cfg.FeedURL, cfg.UserAgent)
	feedCfg.Revalidate = cfg.Revalidate
	limits := ratelimit.DefaultConfig()
	feedCfg.RateLimit = &limits

	cleanup := func() {}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		feedCfg.Redis = rdb
		cleanup = func() { rdb.Close() }
	}

	client, err := feed.New[feed.Record](feedCfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create feed client: %w", err)
	}
	return client, cleanup, nil
}

// syntheticSource returns pages of generated records with ids
// (page-1)*perPage+1 ... page*perPage, bounded by total when positive.
func syntheticSource(total int) pagination.PageFetcher[feed.Record] {
	return pagination.FetcherFunc[feed.Record](func(ctx context.Context, page, perPage int) ([]feed.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records := make([]feed.Record, 0, perPage)
		for i := 0; i < perPage; i++ {
			id := (page-1)*perPage + i + 1
			if total > 0 && id > total {
				break
			}
			records = append(records, feed.Record{
				ID:     int64(id),
				Fields: map[string]any{"title": fmt.Sprintf("Post %d", id)},
			})
		}
		return records, nil
	})
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
