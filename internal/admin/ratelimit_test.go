package admin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func statusFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = ip + ":40000"
	return req
}

func TestStatusLimiter_BurstThenReject(t *testing.T) {
	l := NewStatusLimiter(testLogger())
	handler := l.Wrap(okHandler())

	for i := 0; i < statusBurst; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, statusFrom("10.0.0.1"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, statusFrom("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestStatusLimiter_PerClient(t *testing.T) {
	l := NewStatusLimiter(testLogger())
	handler := l.Wrap(okHandler())

	for i := 0; i < statusBurst+1; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), statusFrom("10.0.0.1"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, statusFrom("10.0.0.9"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, l.clientCount())
}

func TestStatusLimiter_ResetsWhenFull(t *testing.T) {
	l := newStatusLimiter(1, 1, testLogger())
	for i := 0; i < maxTrackedClients; i++ {
		require.True(t, l.allow(fmt.Sprintf("10.1.%d.%d", i/256, i%256)))
	}
	require.Equal(t, maxTrackedClients, l.clientCount())

	assert.True(t, l.allow("192.0.2.50"))
	assert.Equal(t, 1, l.clientCount())
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.5 , 10.0.0.2")
	assert.Equal(t, "203.0.113.5", extractClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", extractClientIP(req))
}
