package watchdog

import (
	"fmt"
	"time"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
)

// CooldownPolicy controls how much work a cooldown-gated tick does.
type CooldownPolicy string

const (
	// CooldownPolicyObserve skips the decision but still measures lag.
	CooldownPolicyObserve CooldownPolicy = "observe"
	// CooldownPolicySkip performs no signal acquisition at all.
	CooldownPolicySkip CooldownPolicy = "skip"
)

const (
	DefaultModerateLag   = 20
	DefaultSevereLag     = 100
	DefaultCooldown      = 300 * time.Second
	DefaultTrendWindow   = 300 * time.Second
	DefaultStallDuration = 180 * time.Second
	DefaultCheckInterval = 60 * time.Second
)

type Config struct {
	ModerateLag    int64
	SevereLag      int64
	Cooldown       time.Duration
	CooldownPolicy CooldownPolicy
	TrendWindow    time.Duration
	StallDuration  time.Duration
	CheckInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.ModerateLag <= 0 {
		c.ModerateLag = DefaultModerateLag
	}
	if c.SevereLag <= 0 {
		c.SevereLag = DefaultSevereLag
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.CooldownPolicy == "" {
		c.CooldownPolicy = CooldownPolicyObserve
	}
	if c.TrendWindow <= 0 {
		c.TrendWindow = DefaultTrendWindow
	}
	if c.StallDuration <= 0 {
		c.StallDuration = DefaultStallDuration
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	return c
}

// Input carries one tick's signals. Head and Synced are nil when the
// mandatory signal could not be obtained.
type Input struct {
	Now       time.Time
	Head      *model.HeightSample
	Synced    *model.HeightSample
	SyncState model.SyncState
	Producing bool
}

// Evaluation is the engine's output for one tick.
type Evaluation struct {
	Verdict model.Verdict

	// Measurement is nil when no lag was computed this tick.
	Measurement *Measurement
	Trend       TrendSignals

	// CooldownRemaining is positive only for cooldown-gated ticks.
	CooldownRemaining time.Duration
}

// Engine is the restart decision engine. It holds configuration only; all
// mutable history lives in the State passed to each call.
type Engine struct {
	cfg      Config
	detector Detector
}

func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		detector: NewDetector(cfg.StallDuration),
	}
}

func (e *Engine) Config() Config { return e.cfg }

// NewState returns a State sized for the configured trend window.
func (e *Engine) NewState() *State {
	return NewState(HistoryCapacity(e.cfg.TrendWindow, e.cfg.CheckInterval))
}

// CooldownRemaining returns how long the cooldown gate stays closed, zero
// when no cooldown is active.
func (e *Engine) CooldownRemaining(st *State, now time.Time) time.Duration {
	last, ok := st.LastRestartAt()
	if !ok {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed >= e.cfg.Cooldown {
		return 0
	}
	return e.cfg.Cooldown - elapsed
}

// ShouldAcquire reports whether the scheduler needs to fetch signals at all.
func (e *Engine) ShouldAcquire(st *State, now time.Time) bool {
	return e.CooldownRemaining(st, now) == 0 || e.cfg.CooldownPolicy == CooldownPolicyObserve
}

// Evaluate runs the ordered decision list. The first matching rule wins.
func (e *Engine) Evaluate(st *State, in Input) Evaluation {
	if remaining := e.CooldownRemaining(st, in.Now); remaining > 0 {
		ev := Evaluation{
			Verdict:           model.Skip(model.ReasonCooldown),
			CooldownRemaining: remaining,
		}
		if e.cfg.CooldownPolicy == CooldownPolicyObserve && in.Head != nil && in.Synced != nil {
			m := e.measure(st, *in.Head, *in.Synced)
			ev.Measurement = &m
		}
		return ev
	}

	if in.Head == nil || in.Synced == nil {
		return Evaluation{Verdict: model.Skip(model.ReasonSignalUnavailable)}
	}

	m := e.measure(st, *in.Head, *in.Synced)
	lag := m.EffectiveLag()
	trend := e.detector.Observe(st.history, &st.stall, lag, m.Progress, in.Now)

	ev := Evaluation{Measurement: &m, Trend: trend}
	ev.Verdict = e.decide(lag, trend, in.SyncState, in.Producing)
	return ev
}

func (e *Engine) decide(lag int64, trend TrendSignals, syncState model.SyncState, producing bool) model.Verdict {
	switch {
	case lag > e.cfg.SevereLag:
		return model.Restart(model.ReasonSevereLag)
	case !producing && trend.Stalled:
		return model.Restart(model.ReasonStalled)
	case !producing && trend.FallingBehind:
		return model.Restart(model.ReasonFallingBehind)
	case syncState == model.SyncStateSyncing:
		return model.Skip(model.ReasonActivelySyncing)
	case producing:
		return model.Skip(model.ReasonProducingBlocks)
	case lag > e.cfg.ModerateLag:
		return model.Restart(model.ReasonModerateLagIdle)
	default:
		return model.Skip(model.ReasonHealthy)
	}
}

func (e *Engine) measure(st *State, head, synced model.HeightSample) Measurement {
	m := Measure(st.previous, head, synced)
	prev := synced
	st.previous = &prev
	return m
}

// RecordRestart applies the outcome of a restart attempt. A failed attempt
// leaves the cooldown timer untouched so the next tick may retry.
func (e *Engine) RecordRestart(st *State, now time.Time, restartErr error) {
	if restartErr != nil {
		return
	}
	st.lastRestartAt = now
	st.restarts++
	st.history.Reset()
	st.stall.Clear()
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine(moderate=%d severe=%d cooldown=%s policy=%s trend=%s stall=%s)",
		e.cfg.ModerateLag, e.cfg.SevereLag, e.cfg.Cooldown, e.cfg.CooldownPolicy, e.cfg.TrendWindow, e.cfg.StallDuration)
}
