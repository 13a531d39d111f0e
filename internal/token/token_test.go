package token

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGenerateToken_FormatAndUniqueness(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{40}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := generateToken()
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if !hexPattern.MatchString(tok) {
			t.Fatalf("unexpected token format: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestResolve_CacheHitSkipsDatabase(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	const tok = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	if err := rdb.Set(context.Background(), cacheKeyPrefix+tok, "42", time.Minute).Err(); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	// db 为 nil：命中缓存的解析不允许触碰数据库。
	issuer := NewIssuer(nil, rdb, nil, time.Minute)
	userID, err := issuer.Resolve(context.Background(), tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
}

func TestResolve_EmptyTokenRejected(t *testing.T) {
	issuer := NewIssuer(nil, nil, nil, time.Minute)
	if _, err := issuer.Resolve(context.Background(), ""); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
