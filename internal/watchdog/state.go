package watchdog

import (
	"time"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
)

// State is everything the engine remembers between ticks. It is owned by a
// single scheduler goroutine and is not safe for concurrent use.
type State struct {
	previous      *model.HeightSample
	history       *LagHistory
	stall         StallTimer
	lastRestartAt time.Time
	restarts      int
}

func NewState(historyCapacity int) *State {
	return &State{history: NewLagHistory(historyCapacity)}
}

// LastRestartAt returns the time of the last successful restart.
func (s *State) LastRestartAt() (time.Time, bool) {
	return s.lastRestartAt, !s.lastRestartAt.IsZero()
}

func (s *State) History() *LagHistory { return s.history }

func (s *State) Stall() *StallTimer { return &s.stall }

// StateSnapshot is a read-only copy of State for status reporting.
type StateSnapshot struct {
	LastRestartAt   *time.Time `json:"last_restart_at,omitempty"`
	Restarts        int        `json:"restarts"`
	PreviousSynced  *uint64    `json:"previous_synced,omitempty"`
	LagHistory      []int64    `json:"lag_history"`
	HistoryCapacity int        `json:"history_capacity"`
	StallSince      *time.Time `json:"stall_since,omitempty"`
}

func (s *State) Snapshot() StateSnapshot {
	snap := StateSnapshot{
		Restarts:        s.restarts,
		LagHistory:      s.history.Values(),
		HistoryCapacity: s.history.Cap(),
	}
	if at, ok := s.LastRestartAt(); ok {
		snap.LastRestartAt = &at
	}
	if s.previous != nil {
		h := s.previous.Height
		snap.PreviousSynced = &h
	}
	if since, ok := s.stall.Since(); ok {
		snap.StallSince = &since
	}
	return snap
}
