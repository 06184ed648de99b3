//go:build integration

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
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

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})

	return client
}

func TestTracker_Integration_SharedState(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	const source = "https://api.example.com/posts"
	first := NewTracker(DefaultConfig(), rdb, source)
	second := NewTracker(DefaultConfig(), rdb, source)
	other := NewTracker(DefaultConfig(), rdb, "https://other.example.com/posts")

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "30")
	if err := first.UpdateFromResponse(ctx, resp); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	if err := second.Wait(ctx); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second.Wait() error = %v, want %v", err, ErrRateLimited)
	}
	if err := other.Wait(ctx); err != nil {
		t.Errorf("other.Wait() error = %v, want nil for a different source", err)
	}

	ttl, err := rdb.TTL(ctx, KeyPrefix+":"+source).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("TTL = %v, want within (0, 30s]", ttl)
	}
}

func TestTracker_Integration_EmptyState(t *testing.T) {
	rdb := setupRedis(t)

	tr := NewTracker(DefaultConfig(), rdb, "https://api.example.com/posts")
	s, err := tr.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !s.ResetAt.IsZero() {
		t.Errorf("State() = %+v, want unknown", s)
	}
}
