package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 1, 10, 12, 0, 5, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()

	d, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, d.Allowed)

	// otra IP tiene su propio contador
	d, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, d.Allowed)

	// siguiente ventana
	now = now.Add(time.Minute)
	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, d.Allowed)
	assert.Equal(t, time.Date(2026, 1, 10, 12, 2, 0, 0, time.UTC), d.ResetAt)
}

func TestMiddleware_RejectsOverBudget(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	rejected := 0
	h := Middleware(l,
		func(r *http.Request) string { return "client" },
		func(*http.Request, string, error) { rejected++ },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/verify/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/verify/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, rejected)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestMiddleware_FailsOpenOnBackendError(t *testing.T) {
	var gotErr error
	h := Middleware(failingLimiter{},
		func(r *http.Request) string { return "" },
		nil,
		func(_ *http.Request, _ string, err error) { gotErr = err },
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualError(t, gotErr, "redis down")
}
