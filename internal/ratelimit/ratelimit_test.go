package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lim, err := NewRedisLimiter(rdb, time.Minute, 1)
	require.NoError(t, err)

	handler := Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "static" },
	}
	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	rec1 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rec1.Code)
	assert.Equal(t, "1", rec1.Header().Get("X-RateLimit-Limit"))

	rec2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "0", rec2.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec2.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })

	lim, err := NewRedisLimiter(rdb, time.Minute, 1)
	require.NoError(t, err)

	var sawErr error
	handler := Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "err" },
		OnError: func(err error) { sawErr = err },
	}
	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Error(t, sawErr)
}
