package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/scroll-pager/internal/config"
	"github.com/Sternrassler/scroll-pager/internal/testutil"
	"github.com/Sternrassler/scroll-pager/pkg/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:        logging.LevelError,
		UserAgent:       "scroll-demo-test/1.0",
		ItemsPerPage:    10,
		ThresholdPixels: 200,
		FetchTimeout:    5 * time.Second,
		ClientHeight:    600,
		RowHeight:       100,
		Steps:           3,
		StepPixels:      300,
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	newMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); body != "OK" {
		t.Errorf("body = %q, want OK", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	out := &bytes.Buffer{}
	if err := run(context.Background(), testConfig(), out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	srv := httptest.NewServer(newMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `scroll_events_total{decision="load"}`) {
		t.Error("metrics output missing scroll_events_total")
	}
}

func TestRun_Synthetic(t *testing.T) {
	tests := []struct {
		name       string
		totalItems int
		steps      int
		want       []string
	}{
		{
			name:  "unbounded",
			steps: 3,
			want: []string{
				"page 1: +10 items (total 10)",
				"page 2: +10 items (total 20)",
				"loaded 20 items, next page 3",
			},
		},
		{
			name:       "bounded source",
			totalItems: 15,
			steps:      3,
			want: []string{
				"page 2: +5 items (total 15)",
				"loaded 15 items",
			},
		},
		{
			name:  "no steps",
			steps: 0,
			want:  []string{"loaded 10 items, next page 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.TotalItems = tt.totalItems
			cfg.Steps = tt.steps

			out := &bytes.Buffer{}
			if err := run(context.Background(), cfg, out); err != nil {
				t.Fatalf("run() error = %v", err)
			}

			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output = %q, want containing %q", out.String(), want)
				}
			}
		})
	}
}

func TestRun_Feed(t *testing.T) {
	mock := testutil.NewMockFeed()
	defer mock.Close()

	cfg := testConfig()
	cfg.FeedURL = mock.URL()
	cfg.Steps = 1

	out := &bytes.Buffer{}
	if err := run(context.Background(), cfg, out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if !strings.Contains(out.String(), "loaded 20 items, next page 3") {
		t.Errorf("output = %q, want 20 items loaded", out.String())
	}

	pages := mock.GetRequestedPages()
	if len(pages) != 2 || pages[0] != 1 || pages[1] != 2 {
		t.Errorf("requested pages = %v, want [1 2]", pages)
	}
}

func TestRun_FeedFailure(t *testing.T) {
	mock := testutil.NewMockFeed()
	defer mock.Close()
	mock.SetPageResponse(1, testutil.NewServerErrorResponse())

	cfg := testConfig()
	cfg.FeedURL = mock.URL()
	cfg.Steps = 2

	out := &bytes.Buffer{}
	if err := run(context.Background(), cfg, out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if !strings.Contains(out.String(), "loaded 0 items, next page 1") {
		t.Errorf("output = %q, want nothing loaded", out.String())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, testConfig(), io.Discard)
	if err != context.Canceled {
		t.Errorf("run() error = %v, want %v", err, context.Canceled)
	}
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--steps", "0", "--per-page", "5", "--log-level", "error"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "loaded 5 items, next page 2") {
		t.Errorf("output = %q, want 5 items loaded", out.String())
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--redis-addr", "localhost:6379"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "redis.addr requires feed.url") {
		t.Errorf("Execute() error = %v, want redis.addr validation error", err)
	}
}
