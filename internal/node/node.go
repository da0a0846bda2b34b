// Package node defines what the watchdog needs from the supervised node
// process: its self-reported signals and a way to restart it.
package node

import (
	"context"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
)

//go:generate mockgen -destination=mocks/mock_node.go -package=mocks . SignalSource,Restarter

// Observation is what one bounded window of node output says about the node.
// Absent markers are reported through the zero values, never as errors.
type Observation struct {
	SyncedHeight    uint64
	HasSyncedHeight bool
	SyncState       model.SyncState

	// Session is nil when no session marker is visible.
	Session *model.Session
}

// SignalSource reads node signals. Errors are reserved for the underlying
// transport being unreachable or returning garbage.
type SignalSource interface {
	Observe(ctx context.Context) (Observation, error)

	// ProducedBlocksSince reports whether both proposal markers appear in
	// the output bounded by the session start.
	ProducedBlocksSince(ctx context.Context, session model.Session) (bool, error)
}

// Restarter restarts the supervised process. It either succeeds or fails;
// there is no partial state.
type Restarter interface {
	Restart(ctx context.Context) error
}
