package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareLimitsPerKey(t *testing.T) {
	limiter := NewMemoryLimiter(0.001, 2) // effectively no refill during the test
	defer func() { _ = limiter.Close() }()

	handler := Middleware(limiter, UserOrIPKeyFunc)(okHandler())

	do := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/recommendations/user?user_id="+userID, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("1"))
	assert.Equal(t, http.StatusOK, do("1"))
	resp := do("1")
	assert.Equal(t, http.StatusTooManyRequests, resp)

	// Separate keys have separate buckets.
	assert.Equal(t, http.StatusOK, do("2"))
}

func TestMiddlewareRetryAfterHeader(t *testing.T) {
	limiter := NewMemoryLimiter(0.001, 1)
	defer func() { _ = limiter.Close() }()

	handler := Middleware(limiter, UserOrIPKeyFunc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/?user_id=9", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestMiddlewareNilLimiterPassesThrough(t *testing.T) {
	handler := Middleware(nil, UserOrIPKeyFunc)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareEmptyKeySkips(t *testing.T) {
	limiter := NewMemoryLimiter(0.001, 1)
	defer func() { _ = limiter.Close() }()

	skipAll := func(*http.Request) string { return "" }
	handler := Middleware(limiter, skipAll)(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestUserOrIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?user_id=42", nil)
	assert.Equal(t, "user:42", UserOrIPKeyFunc(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "ip:10.1.2.3", UserOrIPKeyFunc(req))
}
