package ratelimit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTryAcquire_ReducesTokens(t *testing.T) {
	rdb := newMiniRedis(t)
	defer closeRedis(t, rdb)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:", 10, 2)
	allowed, _, err := limiter.TryAcquire(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("try acquire: %v", err)
	}
	if !allowed {
		t.Fatalf("expected first acquire to be allowed")
	}

	tokensStr, err := rdb.HGet(context.Background(), "test:ratelimit:10.0.0.1", "tokens").Result()
	if err != nil {
		t.Fatalf("hget tokens: %v", err)
	}
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		t.Fatalf("parse tokens: %v", err)
	}
	if tokens > 1.1 {
		t.Fatalf("expected tokens to decrease, got %.2f", tokens)
	}
}

func TestTryAcquire_DeniesWhenBucketEmpty(t *testing.T) {
	rdb := newMiniRedis(t)
	defer closeRedis(t, rdb)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:", 1, 1)
	if allowed, _, _ := limiter.TryAcquire(context.Background(), "client"); !allowed {
		t.Fatalf("warm acquire should be allowed")
	}

	allowed, waitMs, err := limiter.TryAcquire(context.Background(), "client")
	if err != nil {
		t.Fatalf("try acquire: %v", err)
	}
	if allowed {
		t.Fatalf("expected denial on empty bucket")
	}
	if waitMs <= 0 {
		t.Fatalf("expected positive wait hint, got %d", waitMs)
	}
}

func TestTryAcquire_IndependentKeys(t *testing.T) {
	rdb := newMiniRedis(t)
	defer closeRedis(t, rdb)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:", 1, 1)
	if allowed, _, _ := limiter.TryAcquire(context.Background(), "a"); !allowed {
		t.Fatalf("key a should be allowed")
	}
	if allowed, _, _ := limiter.TryAcquire(context.Background(), "b"); !allowed {
		t.Fatalf("key b has its own bucket, should be allowed")
	}
}

func TestTryAcquire_RefillsOverTime(t *testing.T) {
	rdb := newMiniRedis(t)
	defer closeRedis(t, rdb)

	limiter := NewRedisRateLimiter(rdb, nil, "test:ratelimit:", 50, 1)
	if allowed, _, _ := limiter.TryAcquire(context.Background(), "refill"); !allowed {
		t.Fatalf("warm acquire should be allowed")
	}

	time.Sleep(50 * time.Millisecond)
	allowed, _, err := limiter.TryAcquire(context.Background(), "refill")
	if err != nil {
		t.Fatalf("try acquire: %v", err)
	}
	if !allowed {
		t.Fatalf("expected bucket to refill after wait")
	}
}

func TestTryAcquire_DisabledLimiterAllowsAll(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, nil, "test:ratelimit:", 0, 0)
	allowed, _, err := limiter.TryAcquire(context.Background(), "any")
	if err != nil {
		t.Fatalf("try acquire: %v", err)
	}
	if !allowed {
		t.Fatalf("disabled limiter must allow")
	}
}

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func closeRedis(t *testing.T, rdb *redis.Client) {
	t.Helper()
	if err := rdb.Close(); err != nil {
		t.Fatalf("close redis: %v", err)
	}
}
