package confirm

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTestClient connects to the Redis instance named by REDIS_TEST_ADDR,
// skipping the test when none is configured.
func redisTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set; skipping Redis store tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := NewRedisStore(redisTestClient(t))
	ctx := context.Background()

	if err := store.Create(ctx, testPending("redis-1"), time.Minute); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Consume(ctx, "redis-1")
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if got.Action != "create_pay_run" {
		t.Errorf("Action = %q, want create_pay_run", got.Action)
	}

	if _, err := store.Consume(ctx, "redis-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Consume() = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store := NewRedisStore(redisTestClient(t))
	ctx := context.Background()

	if err := store.Create(ctx, testPending("redis-2"), time.Second); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := store.Consume(ctx, "redis-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Consume(expired) = %v, want ErrNotFound", err)
	}
}
