package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, 0)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "k"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("third request should be blocked")
	}
	if ok, _ := l.Allow(ctx, "other"); !ok {
		t.Fatalf("keys must not share a window")
	}
}

func TestIPRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("second request should be blocked")
	}
	now = now.Add(61 * time.Second)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("request after the window should pass")
	}
}

type limiterFunc func(ctx context.Context, key string) (bool, error)

func (f limiterFunc) Allow(ctx context.Context, key string) (bool, error) { return f(ctx, key) }

func TestRateLimitMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		limiter RateLimiter
		want    int
	}{
		{name: "allowed", limiter: limiterFunc(func(context.Context, string) (bool, error) { return true, nil }), want: http.StatusOK},
		{name: "blocked", limiter: limiterFunc(func(context.Context, string) (bool, error) { return false, nil }), want: http.StatusTooManyRequests},
		{name: "limiter down", limiter: limiterFunc(func(context.Context, string) (bool, error) { return false, errors.New("dial tcp: refused") }), want: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			w := httptest.NewRecorder()
			RateLimitMiddleware(tc.limiter)(okHandler).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestRateLimitKeyUsesHostOnly(t *testing.T) {
	var seen string
	l := limiterFunc(func(_ context.Context, key string) (bool, error) {
		seen = key
		return true, nil
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.7:53211"
	RateLimitMiddleware(l)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	if seen != "10.0.0.7|POST|/api/auth/login" {
		t.Fatalf("unexpected key %q", seen)
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	var readErr error
	h := BodyLimitMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/subject", strings.NewReader(`{"name":"Mathematics"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Fatalf("expected oversized body to fail")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/subject", strings.NewReader(`{}`))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if readErr != nil {
		t.Fatalf("small body failed: %v", readErr)
	}
}
