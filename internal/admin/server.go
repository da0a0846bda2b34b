package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/emperorhan/node-watchdog/internal/journal"
	"github.com/emperorhan/node-watchdog/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultRecentEvents = 20
	maxRecentEvents     = 500
	shutdownTimeout     = 5 * time.Second
)

// StatusProvider exposes the supervisor state. Satisfied by *supervisor.Scheduler.
type StatusProvider interface {
	Status() supervisor.Status
}

// JournalReader returns recent decision events, newest first.
type JournalReader interface {
	Recent(ctx context.Context, n int) ([]journal.Event, error)
}

// Server serves liveness, readiness, status and metrics for the watchdog.
type Server struct {
	port           int
	status         StatusProvider
	journal        JournalReader
	metrics        http.Handler
	limiter        *StatusLimiter
	requestLogging bool
	logger         *slog.Logger
}

// ServerOption configures optional dependencies for the admin server.
type ServerOption func(*Server)

// WithJournal enables recent events in /status.
func WithJournal(j JournalReader) ServerOption {
	return func(s *Server) { s.journal = j }
}

// WithMetricsHandler replaces the default Prometheus handler.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// WithStatusLimit throttles /status per client.
func WithStatusLimit(l *StatusLimiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

// WithRequestLogging logs every request at debug level.
func WithRequestLogging() ServerOption {
	return func(s *Server) { s.requestLogging = true }
}

func NewServer(port int, status StatusProvider, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		port:    port,
		status:  status,
		metrics: promhttp.Handler(),
		logger:  logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler for the admin API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)
	var status http.Handler = http.HandlerFunc(s.handleStatus)
	if s.limiter != nil {
		status = s.limiter.Wrap(status)
	}
	mux.Handle("GET /status", status)
	mux.Handle("GET /metrics", s.metrics)

	var h http.Handler = mux
	if s.requestLogging {
		h = RequestLogMiddleware(s.logger, h)
	}
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server started", "port", s.port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("admin server shutdown error", "error", err)
	}
	return <-errCh
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Warn("failed to write health response", "error", err)
	}
}

type readinessResponse struct {
	Status              string `json:"status"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	h := s.status.Status().Health
	code := http.StatusOK
	if h.Status == string(supervisor.HealthStatusUnhealthy) {
		code = http.StatusServiceUnavailable
	}
	writeJSON(s.logger, w, code, readinessResponse{
		Status:              h.Status,
		ConsecutiveFailures: h.ConsecutiveFailures,
		LastError:           h.LastError,
	})
}

type statusResponse struct {
	supervisor.Status
	RecentEvents []journal.Event `json:"recent_events"`
	JournalError string          `json:"journal_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n := defaultRecentEvents
	if raw := r.URL.Query().Get("events"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSON(s.logger, w, http.StatusBadRequest, map[string]string{"error": "events must be a non-negative integer"})
			return
		}
		n = min(v, maxRecentEvents)
	}

	resp := statusResponse{Status: s.status.Status(), RecentEvents: []journal.Event{}}
	if s.journal != nil && n > 0 {
		events, err := s.journal.Recent(r.Context(), n)
		if err != nil {
			s.logger.Warn("failed to read decision journal", "error", err)
			resp.JournalError = err.Error()
		} else if events != nil {
			resp.RecentEvents = events
		}
	}
	writeJSON(s.logger, w, http.StatusOK, resp)
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write json response", "status", status, "error", err)
	}
}
