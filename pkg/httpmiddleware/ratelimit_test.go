package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doFrom(handler http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitWithinBurst(t *testing.T) {
	handler := RateLimit(RateLimitConfig{RPS: 1, Burst: 3})(okHandler())

	for i := 0; i < 3; i++ {
		rec := doFrom(handler, "10.0.0.1:1000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimitOverBurst(t *testing.T) {
	handler := RateLimit(RateLimitConfig{RPS: 0.001, Burst: 2})(okHandler())

	require.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.1:1000").Code)
	require.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.1:1000").Code)

	rec := doFrom(handler, "10.0.0.1:1000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitIndependentClients(t *testing.T) {
	handler := RateLimit(RateLimitConfig{RPS: 0.001, Burst: 1})(okHandler())

	assert.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.2:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, "10.0.0.1:2000").Code)
}

func TestRateLimitForwardedFor(t *testing.T) {
	handler := RateLimit(RateLimitConfig{RPS: 0.001, Burst: 1})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.0.1:1000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 70.41.3.18")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "192.168.0.2:1000"
	req2.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestRateLimitCustomKey(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		RPS:   0.001,
		Burst: 1,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Client")
		},
	})(okHandler())

	do := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusOK, do("b"))
}
