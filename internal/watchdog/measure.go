package watchdog

import (
	"math"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
)

// Measurement is the per-tick arithmetic over the head and synced samples.
type Measurement struct {
	Head   uint64
	Synced uint64

	// Lag is the signed difference head - synced. It is negative when the
	// node reports itself ahead of the reference endpoint.
	Lag int64

	// Progress is the synced height delta since the previous tick, 0 on the
	// first tick.
	Progress int64

	// Rate is Progress per second of elapsed wall time between synced samples.
	Rate float64

	// ETA is the number of seconds needed to close the lag at Rate,
	// +Inf when Rate is not positive.
	ETA float64
}

// EffectiveLag is the lag used for decisions: negative lag counts as zero.
func (m Measurement) EffectiveLag() int64 {
	if m.Lag < 0 {
		return 0
	}
	return m.Lag
}

// Measure computes lag, progress, rate and ETA. previous is nil on the
// first tick.
func Measure(previous *model.HeightSample, head, synced model.HeightSample) Measurement {
	m := Measurement{
		Head:   head.Height,
		Synced: synced.Height,
		Lag:    int64(head.Height) - int64(synced.Height),
		ETA:    math.Inf(1),
	}

	if previous != nil {
		m.Progress = int64(synced.Height) - int64(previous.Height)
		elapsed := synced.ObservedAt.Sub(previous.ObservedAt).Seconds()
		if elapsed > 0 {
			m.Rate = float64(m.Progress) / elapsed
		}
	}

	if m.Rate > 0 {
		m.ETA = float64(m.EffectiveLag()) / m.Rate
	}
	return m
}
