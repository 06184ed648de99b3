//go:build integration

package feed

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/scroll-pager/internal/testutil"
	"github.com/Sternrassler/scroll-pager/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		rdb.Close()
		container.Terminate(ctx)
	})

	return rdb
}

func TestClient_CacheHit(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockFeed()
	defer mock.Close()

	cfg := DefaultConfig(mock.URL(), "scroll-pager-test/1.0")
	cfg.Redis = rdb
	c, err := New[Record](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	first, err := c.FetchPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	second, err := c.FetchPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("FetchPage() cached error = %v", err)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
	if len(second) != len(first) || second[0].ID != first[0].ID {
		t.Errorf("cached page = %v, want %v", second, first)
	}

	// A different page size is a different cache key.
	if _, err := c.FetchPage(ctx, 1, 5); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("request count = %d, want 2", mock.GetRequestCount())
	}
}

func TestClient_Revalidate(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockFeed()
	defer mock.Close()

	cfg := DefaultConfig(mock.URL(), "scroll-pager-test/1.0")
	cfg.Redis = rdb
	cfg.Revalidate = true
	c, err := New[Record](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if _, err := c.FetchPage(ctx, 2, 10); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	items, err := c.FetchPage(ctx, 2, 10)
	if err != nil {
		t.Fatalf("FetchPage() revalidated error = %v", err)
	}

	if mock.GetRequestCount() != 2 {
		t.Errorf("request count = %d, want 2", mock.GetRequestCount())
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional count = %d, want 1", mock.GetConditionalCount())
	}
	if got := mock.GetLastRequestHeader().Get("If-None-Match"); got != `"page-2-10"` {
		t.Errorf("If-None-Match = %q, want %q", got, `"page-2-10"`)
	}
	if len(items) != 10 || items[0].ID != int64(11) {
		t.Errorf("items after 304 = %v, want ids 11..20", items)
	}
	stored, err := cache.NewStore(rdb).Load(ctx, cache.Key{Source: c.sourceURL(), Page: 2, PerPage: 10, Query: c.baseURL.Query()})
	if err != nil {
		t.Fatalf("stored page after 304: %v", err)
	}
	if stored.ETag != `"page-2-10"` || !stored.Fresh(time.Now()) {
		t.Errorf("stored page = etag %q expires %v, want fresh page-2-10", stored.ETag, stored.Expires)
	}
}
