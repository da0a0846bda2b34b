package admin

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const (
	statusRPS   = 2
	statusBurst = 5

	// maxTrackedClients bounds the client map; it is reset when full.
	maxTrackedClients = 256
)

// StatusLimiter throttles /status per client. Each /status request reads the
// decision journal, the probes and /metrics do not and are never limited.
type StatusLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	logger  *slog.Logger
}

func NewStatusLimiter(logger *slog.Logger) *StatusLimiter {
	return newStatusLimiter(statusRPS, statusBurst, logger)
}

func newStatusLimiter(limit rate.Limit, burst int, logger *slog.Logger) *StatusLimiter {
	return &StatusLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
		logger:  logger,
	}
}

// Wrap rejects requests over the client's budget with 429.
func (l *StatusLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := extractClientIP(r)
		if !l.allow(client) {
			w.Header().Set("Retry-After", "1")
			writeJSON(l.logger, w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			l.logger.Warn("status rate limit exceeded", "client_ip", client)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *StatusLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			clear(l.clients)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.clients[client] = lim
	}
	return lim.Allow()
}

func (l *StatusLimiter) clientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// extractClientIP prefers the first X-Forwarded-For hop over the peer address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
