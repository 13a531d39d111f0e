package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type mockResolver struct {
	resolveFunc func(ctx context.Context, token string) (uint, error)
	calls       int
	lastToken   string
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (uint, error) {
	m.calls++
	m.lastToken = token
	return m.resolveFunc(ctx, token)
}

func newAuthRouter(resolver TokenResolver) (*gin.Engine, *uint) {
	gin.SetMode(gin.TestMode)
	var seenUserID uint
	r := gin.New()
	r.Use(Auth(resolver))
	r.GET("/protected", func(c *gin.Context) {
		seenUserID = UserID(c)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, &seenUserID
}

func TestAuth_MissingHeader(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(ctx context.Context, token string) (uint, error) { return 1, nil }}
	r, _ := newAuthRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver must not be called without a header")
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(ctx context.Context, token string) (uint, error) { return 1, nil }}
	r, _ := newAuthRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(ctx context.Context, token string) (uint, error) {
		return 0, errors.New("invalid token")
	}}
	r, _ := newAuthRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuth_ValidTokenSetsUserID(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(ctx context.Context, token string) (uint, error) { return 7, nil }}
	r, seenUserID := newAuthRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if *seenUserID != 7 {
		t.Fatalf("expected userID 7 in context, got %d", *seenUserID)
	}
	if resolver.lastToken != "sometoken" {
		t.Fatalf("expected raw token passed to resolver, got %q", resolver.lastToken)
	}
}
