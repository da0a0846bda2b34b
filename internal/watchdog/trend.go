package watchdog

import "time"

// StallTimer marks when the current unbroken zero-progress streak began.
// Only progress or a restart clears it.
type StallTimer struct {
	since time.Time
	set   bool
}

// Since returns the streak start, if any.
func (s *StallTimer) Since() (time.Time, bool) {
	return s.since, s.set
}

func (s *StallTimer) mark(now time.Time) {
	if !s.set {
		s.since = now
		s.set = true
	}
}

func (s *StallTimer) Clear() {
	s.since = time.Time{}
	s.set = false
}

// TrendSignals are advisory flags consumed by the engine.
type TrendSignals struct {
	Stalled       bool `json:"stalled"`
	FallingBehind bool `json:"falling_behind"`
}

// Detector folds lag and progress samples into stall and trend signals.
type Detector struct {
	stallDuration time.Duration
}

func NewDetector(stallDuration time.Duration) Detector {
	return Detector{stallDuration: stallDuration}
}

// Observe appends lag to history, advances the stall timer and reports the
// resulting signals. A non-positive progress counts as no progress.
func (d Detector) Observe(history *LagHistory, stall *StallTimer, lag, progress int64, now time.Time) TrendSignals {
	history.Append(lag)

	var out TrendSignals
	if progress > 0 {
		stall.Clear()
	} else {
		stall.mark(now)
		if since, ok := stall.Since(); ok && now.Sub(since) >= d.stallDuration {
			out.Stalled = true
		}
	}

	if history.Full() {
		if mean, ok := history.MeanDelta(); ok && mean > 0 {
			out.FallingBehind = true
		}
	}
	return out
}
