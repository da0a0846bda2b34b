package watchdog

import (
	"math"
	"time"
)

// HistoryCapacity returns ceil(trendWindow / checkInterval) + 1, the number
// of lag samples that span one full trend window.
func HistoryCapacity(trendWindow, checkInterval time.Duration) int {
	if checkInterval <= 0 || trendWindow <= 0 {
		return 1
	}
	return int(math.Ceil(float64(trendWindow)/float64(checkInterval))) + 1
}

// LagHistory is a fixed-capacity sequence of lag values. Appending to a full
// history evicts the oldest value.
type LagHistory struct {
	values   []int64
	capacity int
}

func NewLagHistory(capacity int) *LagHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &LagHistory{
		values:   make([]int64, 0, capacity),
		capacity: capacity,
	}
}

func (h *LagHistory) Append(lag int64) {
	if len(h.values) >= h.capacity {
		copy(h.values, h.values[1:])
		h.values = h.values[:len(h.values)-1]
	}
	h.values = append(h.values, lag)
}

func (h *LagHistory) Len() int { return len(h.values) }

func (h *LagHistory) Cap() int { return h.capacity }

func (h *LagHistory) Full() bool { return len(h.values) == h.capacity }

// Values returns a copy ordered oldest first.
func (h *LagHistory) Values() []int64 {
	out := make([]int64, len(h.values))
	copy(out, h.values)
	return out
}

func (h *LagHistory) Reset() {
	h.values = h.values[:0]
}

// MeanDelta is the average of consecutive differences lag[i+1] - lag[i].
// It returns false when fewer than two samples are held.
func (h *LagHistory) MeanDelta() (float64, bool) {
	n := len(h.values)
	if n < 2 {
		return 0, false
	}
	var sum int64
	for i := 1; i < n; i++ {
		sum += h.values[i] - h.values[i-1]
	}
	return float64(sum) / float64(n-1), true
}
