package model

import "time"

// Target identifies the supervised node process (a container name or id).
type Target string

func (t Target) String() string {
	return string(t)
}

// HeightSample is a block height observed at a point in time.
type HeightSample struct {
	Height     uint64
	ObservedAt time.Time
}

type SyncState string

const (
	SyncStateUnknown    SyncState = "UNKNOWN"
	SyncStateSyncing    SyncState = "SYNCING"
	SyncStateNotSyncing SyncState = "NOT_SYNCING"
)

func (s SyncState) String() string {
	return string(s)
}

// Session is the most recently observed consensus session marker.
// StartedAt is zero when the marker carried no timestamp.
type Session struct {
	ID        string
	StartedAt time.Time
}

// HasStart reports whether the session start time is known.
func (s Session) HasStart() bool {
	return !s.StartedAt.IsZero()
}
