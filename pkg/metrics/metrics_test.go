package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/scroll-pager/pkg/cache"
	"github.com/Sternrassler/scroll-pager/pkg/metrics"
	"github.com/Sternrassler/scroll-pager/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type item int

func (i item) ItemID() any { return int(i) }

func TestRegistry(t *testing.T) {
	if metrics.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if metrics.Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestHandler(t *testing.T) {
	logger := zerolog.Nop()
	ctrl, err := pagination.New(pagination.Config[item]{
		Fetcher: pagination.FetcherFunc[item](func(ctx context.Context, page, perPage int) ([]item, error) {
			return []item{item(page)}, nil
		}),
		Logger: &logger,
	})
	if err != nil {
		t.Fatalf("pagination.New() error = %v", err)
	}
	defer ctrl.Close()

	ctrl.RequestNextPage(context.Background())
	cache.CacheHits.Add(0)

	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`scroll_page_fetches_total{result="success"}`,
		"scroll_items_loaded_total",
		"scroll_cache_hits_total",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
