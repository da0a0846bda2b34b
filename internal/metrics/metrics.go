package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watchdog collectors, partitioned by supervised target.

var (
	// Scheduler
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Total evaluation cycles run",
	}, []string{"target"})

	TickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "watchdog",
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Evaluation cycle duration including external calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"target"})

	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "engine",
		Name:      "verdicts_total",
		Help:      "Decisions emitted by the restart engine",
	}, []string{"target", "action", "reason"})

	// Node progress
	HeadHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "head_height",
		Help:      "Latest reference chain head height",
	}, []string{"target"})

	SyncedHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "synced_height",
		Help:      "Latest height reported by the supervised node",
	}, []string{"target"})

	Lag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "lag_blocks",
		Help:      "Signed head minus synced height",
	}, []string{"target"})

	SyncRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "sync_rate_blocks_per_second",
		Help:      "Synced height progress rate since the previous tick",
	}, []string{"target"})

	CatchUpETA = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "catch_up_eta_seconds",
		Help:      "Seconds to close the lag at the current rate (+Inf when not progressing)",
	}, []string{"target"})

	Syncing = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "major_sync",
		Help:      "1 when syncing, 0 when not syncing, -1 when unknown",
	}, []string{"target"})

	Producing = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "node",
		Name:      "producing_blocks",
		Help:      "1 when block production evidence exists in the current session",
	}, []string{"target"})

	Stalled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "trend",
		Name:      "stalled",
		Help:      "1 when the node has made no progress for the stall duration",
	}, []string{"target"})

	FallingBehind = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "trend",
		Name:      "falling_behind",
		Help:      "1 when the full trend window shows growing lag",
	}, []string{"target"})

	// Signals
	SignalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "signal",
		Name:      "failures_total",
		Help:      "Failed signal acquisitions by signal and error kind",
	}, []string{"target", "signal", "kind"})

	// Restarts
	RestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "actuator",
		Name:      "restarts_total",
		Help:      "Restart attempts by reason and outcome",
	}, []string{"target", "reason", "outcome"})

	LastRestartTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "actuator",
		Name:      "last_restart_timestamp_seconds",
		Help:      "Unix time of the last successful restart",
	}, []string{"target"})

	// Chain head RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Head RPC calls by method and status",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times head RPC calls waited for the rate limiter",
	}, []string{"endpoint"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchdog",
		Subsystem: "rpc",
		Name:      "circuit_breaker_state",
		Help:      "0 closed, 1 open, 2 half-open",
	}, []string{"breaker"})

	// Journal
	JournalPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "journal",
		Name:      "publish_errors_total",
		Help:      "Decision journal publish failures",
	}, []string{"backend"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchdog",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts suppressed by cooldown",
	}, []string{"channel", "type"})
)

// BoolGauge converts a flag into a gauge value.
func BoolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
