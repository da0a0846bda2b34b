// Package journal records every watchdog decision for later inspection.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one evaluated tick. Height fields are nil when the tick never
// obtained them.
type Event struct {
	ID     string    `json:"id"`
	TickID string    `json:"tick_id"`
	Target string    `json:"target"`
	At     time.Time `json:"at"`

	Action string `json:"action"`
	Reason string `json:"reason"`

	Head     *uint64 `json:"head,omitempty"`
	Synced   *uint64 `json:"synced,omitempty"`
	Lag      *int64  `json:"lag,omitempty"`
	Progress *int64  `json:"progress,omitempty"`

	SyncState     string `json:"sync_state,omitempty"`
	Session       string `json:"session,omitempty"`
	Producing     bool   `json:"producing"`
	Stalled       bool   `json:"stalled"`
	FallingBehind bool   `json:"falling_behind"`

	RestartAttempted bool   `json:"restart_attempted"`
	RestartError     string `json:"restart_error,omitempty"`
	DryRun           bool   `json:"dry_run,omitempty"`
}

func NewEvent(tickID, target string, at time.Time) Event {
	return Event{
		ID:     uuid.NewString(),
		TickID: tickID,
		Target: target,
		At:     at.UTC(),
	}
}

// Transport stores events. Recent returns the newest events first.
type Transport interface {
	Backend() string
	Publish(ctx context.Context, ev Event) error
	Recent(ctx context.Context, n int) ([]Event, error)
	Close() error
}
