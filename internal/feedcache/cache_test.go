package feedcache

import (
	"context"
	"testing"
	"time"

	"cliptide/internal/testsupport/redisstub"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	stub, err := redisstub.Start(redisstub.Options{Password: cfg.Password})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() { _ = stub.Close() })

	cfg.Addr = stub.Addr()
	cache, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, Config{TTL: time.Minute})
	ctx := context.Background()

	if _, ok := cache.Get(ctx); ok {
		t.Fatal("expected miss on a fresh cache")
	}

	payload := []byte(`{"videos":[{"id":"v1"}]}`)
	cache.Set(ctx, payload)

	cached, ok := cache.Get(ctx)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(cached) != string(payload) {
		t.Fatalf("payload mismatch: %s", cached)
	}
}

func TestCacheInvalidate(t *testing.T) {
	cache := newTestCache(t, Config{TTL: time.Minute})
	ctx := context.Background()

	cache.Set(ctx, []byte(`{"videos":[]}`))
	cache.Invalidate(ctx)

	if _, ok := cache.Get(ctx); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestCacheEntriesExpire(t *testing.T) {
	cache := newTestCache(t, Config{TTL: time.Second})
	ctx := context.Background()

	cache.Set(ctx, []byte(`{"videos":[]}`))
	if _, ok := cache.Get(ctx); !ok {
		t.Fatal("expected hit inside the TTL window")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := cache.Get(ctx); !ok {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("expected entry to expire")
}

func TestCacheAuth(t *testing.T) {
	cache := newTestCache(t, Config{Password: "sekret", TTL: time.Minute})

	if err := cache.Ping(context.Background()); err != nil {
		t.Fatalf("expected authenticated ping to succeed: %v", err)
	}
}

func TestCacheIgnoresEmptyPayload(t *testing.T) {
	cache := newTestCache(t, Config{TTL: time.Minute})
	ctx := context.Background()

	cache.Set(ctx, nil)
	if _, ok := cache.Get(ctx); ok {
		t.Fatal("expected empty payloads to be skipped")
	}
}

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error when no addr is configured")
	}
}
