// Package supervisor drives the watchdog: one evaluation cycle per tick,
// with the engine state owned by the single scheduler loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/emperorhan/node-watchdog/internal/alert"
	"github.com/emperorhan/node-watchdog/internal/chain"
	"github.com/emperorhan/node-watchdog/internal/domain/model"
	"github.com/emperorhan/node-watchdog/internal/journal"
	"github.com/emperorhan/node-watchdog/internal/metrics"
	"github.com/emperorhan/node-watchdog/internal/node"
	"github.com/emperorhan/node-watchdog/internal/signalerr"
	"github.com/emperorhan/node-watchdog/internal/tracing"
	"github.com/emperorhan/node-watchdog/internal/watchdog"
	"github.com/google/uuid"
)

const (
	signalHead       = "head"
	signalNodeOutput = "node_output"
	signalSynced     = "synced_height"
	signalProduction = "production"
)

var errSyncedHeightAbsent = errors.New("no synced height marker in node output")

type Config struct {
	Target             model.Target
	Interval           time.Duration
	DryRun             bool
	UnhealthyThreshold int
}

type Deps struct {
	Engine    *watchdog.Engine
	Head      chain.HeadSource
	Signals   node.SignalSource
	Restarter node.Restarter
	Alerter   alert.Alerter
	Journal   journal.Transport
	Logger    *slog.Logger
}

// SignalFailure describes one signal that could not be used this tick.
type SignalFailure struct {
	Signal string `json:"signal"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// TickReport is what one evaluation cycle saw and did.
type TickReport struct {
	TickID    string          `json:"tick_id"`
	At        time.Time       `json:"at"`
	Duration  time.Duration   `json:"duration_ns"`
	Verdict   model.Verdict   `json:"verdict"`
	Head      *uint64         `json:"head,omitempty"`
	Synced    *uint64         `json:"synced,omitempty"`
	SyncState model.SyncState `json:"sync_state"`
	Session   string          `json:"session,omitempty"`
	Producing bool            `json:"producing"`
	Failures  []SignalFailure `json:"failures,omitempty"`
	Acquired  bool            `json:"acquired"`

	Measurement       *watchdog.Measurement `json:"-"`
	Metrics           *MeasurementReport    `json:"measurement,omitempty"`
	Trend             watchdog.TrendSignals `json:"trend"`
	CooldownRemaining time.Duration         `json:"cooldown_remaining_ns,omitempty"`

	RestartAttempted bool   `json:"restart_attempted"`
	RestartError     string `json:"restart_error,omitempty"`
	DryRun           bool   `json:"dry_run,omitempty"`
}

// MeasurementReport is the JSON form of a measurement. ETASeconds is
// omitted while the node is not progressing.
type MeasurementReport struct {
	Head       uint64   `json:"head"`
	Synced     uint64   `json:"synced"`
	Lag        int64    `json:"lag"`
	Progress   int64    `json:"progress"`
	Rate       float64  `json:"rate"`
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
}

func newMeasurementReport(m *watchdog.Measurement) *MeasurementReport {
	if m == nil {
		return nil
	}
	r := &MeasurementReport{
		Head:     m.Head,
		Synced:   m.Synced,
		Lag:      m.Lag,
		Progress: m.Progress,
		Rate:     m.Rate,
	}
	if !math.IsInf(m.ETA, 0) && !math.IsNaN(m.ETA) {
		eta := m.ETA
		r.ETASeconds = &eta
	}
	return r
}

// Status is the scheduler's externally visible state.
type Status struct {
	Target   string                 `json:"target"`
	DryRun   bool                   `json:"dry_run"`
	Ticks    int64                  `json:"ticks"`
	Engine   string                 `json:"engine"`
	Health   HealthSnapshot         `json:"health"`
	State    watchdog.StateSnapshot `json:"state"`
	LastTick *TickReport            `json:"last_tick,omitempty"`
}

type Option func(*Scheduler)

// WithClock overrides the wall clock used for samples and decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

type Scheduler struct {
	cfg       Config
	engine    *watchdog.Engine
	state     *watchdog.State
	head      chain.HeadSource
	signals   node.SignalSource
	restarter node.Restarter
	alerter   alert.Alerter
	journal   journal.Transport
	health    *Health
	logger    *slog.Logger
	now       func() time.Time
	target    string

	mu       sync.RWMutex
	ticks    int64
	lastTick *TickReport
	snapshot watchdog.StateSnapshot
}

func New(cfg Config, deps Deps, opts ...Option) *Scheduler {
	engine := deps.Engine
	if engine == nil {
		engine = watchdog.NewEngine(watchdog.Config{CheckInterval: cfg.Interval})
	}
	if cfg.Interval <= 0 {
		cfg.Interval = engine.Config().CheckInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alerter := deps.Alerter
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	journ := deps.Journal
	if journ == nil {
		journ = journal.NewMemory(journal.DefaultMemoryCapacity)
	}

	s := &Scheduler{
		cfg:       cfg,
		engine:    engine,
		state:     engine.NewState(),
		head:      deps.Head,
		signals:   deps.Signals,
		restarter: deps.Restarter,
		alerter:   alerter,
		journal:   journ,
		health:    NewHealth(cfg.Target.String(), cfg.UnhealthyThreshold),
		logger:    logger.With("component", "scheduler", "target", cfg.Target.String()),
		now:       time.Now,
		target:    cfg.Target.String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.health.now = s.now
	s.snapshot = s.state.Snapshot()
	return s
}

func (s *Scheduler) Health() *Health { return s.health }

func (s *Scheduler) Journal() journal.Transport { return s.journal }

// Run evaluates once immediately, then once per interval until ctx is
// cancelled. A tick in progress is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"dry_run", s.cfg.DryRun,
		"engine", s.engine.String(),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			// a shutdown that raced the ticker wins
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopping")
				return ctx.Err()
			}
			s.Tick(ctx)
		}
	}
}

// Tick runs one full evaluation cycle. External calls are bounded by their
// own timeouts, not by ctx cancellation.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	now := s.now()

	report := TickReport{
		TickID:    uuid.NewString(),
		At:        now,
		SyncState: model.SyncStateUnknown,
	}
	ctx, span := tracing.StartTick(ctx, s.target, report.TickID)
	defer span.End()
	metrics.TicksTotal.WithLabelValues(s.target).Inc()

	in := watchdog.Input{Now: now, SyncState: model.SyncStateUnknown}
	if s.engine.ShouldAcquire(s.state, now) {
		report.Acquired = true
		s.acquire(ctx, &in, &report)
	}

	ev := s.engine.Evaluate(s.state, in)
	report.Verdict = ev.Verdict
	report.Measurement = ev.Measurement
	report.Metrics = newMeasurementReport(ev.Measurement)
	report.Trend = ev.Trend
	report.CooldownRemaining = ev.CooldownRemaining

	if ev.Verdict.IsRestart() {
		s.restart(ctx, &report)
	}

	s.updateHealth(ctx, &report)
	s.observe(&report)
	report.Duration = time.Since(started)
	metrics.TickLatency.WithLabelValues(s.target).Observe(report.Duration.Seconds())

	s.publish(ctx, &report)
	s.logTick(&report)

	s.mu.Lock()
	s.ticks++
	last := report
	s.lastTick = &last
	s.snapshot = s.state.Snapshot()
	s.mu.Unlock()

	return report
}

func (s *Scheduler) acquire(ctx context.Context, in *watchdog.Input, report *TickReport) {
	cooling := s.engine.CooldownRemaining(s.state, in.Now) > 0

	stepCtx, step := tracing.StartStep(ctx, "head")
	height, err := s.head.HeadHeight(stepCtx)
	tracing.EndStep(step, err)
	if err != nil {
		s.signalFailed(report, signalHead, err)
	} else {
		in.Head = &model.HeightSample{Height: height, ObservedAt: s.now()}
		report.Head = &height
	}

	stepCtx, step = tracing.StartStep(ctx, "observe")
	obs, err := s.signals.Observe(stepCtx)
	tracing.EndStep(step, err)
	if err != nil {
		s.signalFailed(report, signalNodeOutput, err)
		return
	}

	if obs.SyncState != "" {
		in.SyncState = obs.SyncState
		report.SyncState = obs.SyncState
	}
	if obs.HasSyncedHeight {
		synced := obs.SyncedHeight
		in.Synced = &model.HeightSample{Height: synced, ObservedAt: s.now()}
		report.Synced = &synced
	} else {
		s.signalFailed(report, signalSynced, errSyncedHeightAbsent)
	}

	// Production only matters when a decision will be taken.
	if cooling || in.Head == nil || in.Synced == nil || obs.Session == nil {
		return
	}
	report.Session = obs.Session.ID

	stepCtx, step = tracing.StartStep(ctx, "production")
	producing, err := s.signals.ProducedBlocksSince(stepCtx, *obs.Session)
	tracing.EndStep(step, err)
	if err != nil {
		// optional signal: degrade to not producing
		s.signalFailed(report, signalProduction, err)
		return
	}
	in.Producing = producing
	report.Producing = producing
}

func (s *Scheduler) signalFailed(report *TickReport, signal string, err error) {
	kind := string(signalerr.KindOf(err))
	if errors.Is(err, errSyncedHeightAbsent) {
		kind = "absent"
	}
	metrics.SignalFailures.WithLabelValues(s.target, signal, kind).Inc()
	report.Failures = append(report.Failures, SignalFailure{Signal: signal, Kind: kind, Error: err.Error()})

	level := slog.LevelError
	if signal == signalProduction {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "signal unavailable",
		"tick_id", report.TickID,
		"signal", signal,
		"error_kind", kind,
		"error", err,
	)
}

func (s *Scheduler) restart(ctx context.Context, report *TickReport) {
	reason := report.Verdict.Reason.String()
	report.RestartAttempted = true

	if s.cfg.DryRun {
		report.DryRun = true
		s.engine.RecordRestart(s.state, s.now(), nil)
		metrics.RestartsTotal.WithLabelValues(s.target, reason, "dry_run").Inc()
		s.logger.Warn("dry run: restart suppressed", "tick_id", report.TickID, "verdict", report.Verdict.String())
		return
	}

	s.logger.Warn("restarting node", "tick_id", report.TickID, "verdict", report.Verdict.String())

	stepCtx, step := tracing.StartStep(ctx, "restart")
	err := s.restarter.Restart(stepCtx)
	tracing.EndStep(step, err)

	at := s.now()
	s.engine.RecordRestart(s.state, at, err)

	if err != nil {
		report.RestartError = err.Error()
		metrics.RestartsTotal.WithLabelValues(s.target, reason, "failure").Inc()
		s.logger.Error("restart failed", "tick_id", report.TickID, "kind", signalerr.KindOf(err), "error", err)
		s.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeRestartFailed,
			Target:  s.target,
			Title:   "Restart failed",
			Message: fmt.Sprintf("%s: %v", report.Verdict, err),
			Fields:  reportFields(report),
		})
		return
	}

	metrics.RestartsTotal.WithLabelValues(s.target, reason, "success").Inc()
	metrics.LastRestartTimestamp.WithLabelValues(s.target).Set(float64(at.Unix()))
	s.logger.Info("node restarted", "tick_id", report.TickID, "reason", reason)
	s.sendAlert(ctx, alert.Alert{
		Type:    alert.AlertTypeRestart,
		Target:  s.target,
		Title:   "Node restarted",
		Message: report.Verdict.String(),
		Fields:  reportFields(report),
	})
}

func (s *Scheduler) updateHealth(ctx context.Context, report *TickReport) {
	switch {
	case report.Verdict.Reason == model.ReasonSignalUnavailable:
		cause := "signals unavailable"
		if len(report.Failures) > 0 {
			f := report.Failures[0]
			cause = f.Signal + ": " + f.Error
		}
		if s.health.RecordFailure(cause) {
			s.logger.Error("watchdog cannot see its target",
				"consecutive_failures", s.health.ConsecutiveFailures(),
				"last_error", cause,
			)
			s.sendAlert(ctx, alert.Alert{
				Type:    alert.AlertTypeUnhealthy,
				Target:  s.target,
				Title:   "Signals unavailable",
				Message: fmt.Sprintf("%d consecutive ticks without a usable head or synced height", s.health.ConsecutiveFailures()),
				Fields:  map[string]string{"last_error": cause},
			})
		}
	case report.Measurement != nil:
		if s.health.RecordSuccess() {
			s.logger.Info("watchdog signals recovered")
			s.sendAlert(ctx, alert.Alert{
				Type:    alert.AlertTypeRecovery,
				Target:  s.target,
				Title:   "Signals recovered",
				Message: report.Verdict.String(),
				Fields:  reportFields(report),
			})
		}
	}
}

func (s *Scheduler) sendAlert(ctx context.Context, a alert.Alert) {
	if err := s.alerter.Send(ctx, a); err != nil {
		s.logger.Warn("alert delivery failed", "type", a.Type, "error", err)
	}
}

func (s *Scheduler) observe(report *TickReport) {
	metrics.VerdictsTotal.WithLabelValues(s.target, string(report.Verdict.Action), report.Verdict.Reason.String()).Inc()

	if m := report.Measurement; m != nil {
		metrics.HeadHeight.WithLabelValues(s.target).Set(float64(m.Head))
		metrics.SyncedHeight.WithLabelValues(s.target).Set(float64(m.Synced))
		metrics.Lag.WithLabelValues(s.target).Set(float64(m.Lag))
		metrics.SyncRate.WithLabelValues(s.target).Set(m.Rate)
		metrics.CatchUpETA.WithLabelValues(s.target).Set(m.ETA)
	}
	if !report.Acquired {
		return
	}
	metrics.Syncing.WithLabelValues(s.target).Set(syncGauge(report.SyncState))
	metrics.Producing.WithLabelValues(s.target).Set(metrics.BoolGauge(report.Producing))
	metrics.Stalled.WithLabelValues(s.target).Set(metrics.BoolGauge(report.Trend.Stalled))
	metrics.FallingBehind.WithLabelValues(s.target).Set(metrics.BoolGauge(report.Trend.FallingBehind))
}

func syncGauge(state model.SyncState) float64 {
	switch state {
	case model.SyncStateSyncing:
		return 1
	case model.SyncStateNotSyncing:
		return 0
	default:
		return -1
	}
}

func (s *Scheduler) publish(ctx context.Context, report *TickReport) {
	ev := journal.NewEvent(report.TickID, s.target, report.At)
	ev.Action = string(report.Verdict.Action)
	ev.Reason = report.Verdict.Reason.String()
	ev.Head = report.Head
	ev.Synced = report.Synced
	ev.SyncState = report.SyncState.String()
	ev.Session = report.Session
	ev.Producing = report.Producing
	ev.Stalled = report.Trend.Stalled
	ev.FallingBehind = report.Trend.FallingBehind
	ev.RestartAttempted = report.RestartAttempted
	ev.RestartError = report.RestartError
	ev.DryRun = report.DryRun
	if m := report.Measurement; m != nil {
		lag, progress := m.Lag, m.Progress
		ev.Lag = &lag
		ev.Progress = &progress
	}

	if err := s.journal.Publish(ctx, ev); err != nil {
		metrics.JournalPublishErrors.WithLabelValues(s.journal.Backend()).Inc()
		s.logger.Warn("journal publish failed", "backend", s.journal.Backend(), "error", err)
	}
}

func (s *Scheduler) logTick(report *TickReport) {
	attrs := []any{
		"tick_id", report.TickID,
		"verdict", string(report.Verdict.Action),
		"reason", report.Verdict.Reason.String(),
		"sync_state", report.SyncState,
		"producing", report.Producing,
		"duration", report.Duration,
	}
	if m := report.Measurement; m != nil {
		attrs = append(attrs,
			"head", m.Head,
			"synced", m.Synced,
			"lag", m.Lag,
			"progress", m.Progress,
			"rate_bps", strconv.FormatFloat(m.Rate, 'f', 3, 64),
			"eta_seconds", formatETA(m.ETA),
			"stalled", report.Trend.Stalled,
			"falling_behind", report.Trend.FallingBehind,
		)
	}
	if report.CooldownRemaining > 0 {
		attrs = append(attrs, "cooldown_remaining", report.CooldownRemaining.Round(time.Second))
	}
	s.logger.Info("evaluation complete", attrs...)
}

func formatETA(eta float64) string {
	if math.IsInf(eta, 0) || math.IsNaN(eta) {
		return "inf"
	}
	return strconv.FormatFloat(eta, 'f', 1, 64)
}

func reportFields(report *TickReport) map[string]string {
	fields := map[string]string{
		"tick_id":    report.TickID,
		"sync_state": report.SyncState.String(),
		"producing":  strconv.FormatBool(report.Producing),
	}
	if m := report.Measurement; m != nil {
		fields["head"] = strconv.FormatUint(m.Head, 10)
		fields["synced"] = strconv.FormatUint(m.Synced, 10)
		fields["lag"] = strconv.FormatInt(m.Lag, 10)
	}
	return fields
}

// Status returns a copy of the scheduler state as of the last completed tick.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Target: s.target,
		DryRun: s.cfg.DryRun,
		Ticks:  s.ticks,
		Engine: s.engine.String(),
		Health: s.health.Snapshot(),
		State:  s.snapshot,
	}
	if s.lastTick != nil {
		last := *s.lastTick
		st.LastTick = &last
	}
	return st
}
