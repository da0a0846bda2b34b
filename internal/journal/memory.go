package journal

import (
	"context"
	"sync"
)

const DefaultMemoryCapacity = 1000

// Memory keeps the most recent events in a bounded ring.
type Memory struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	count int
}

var _ Transport = (*Memory)(nil)

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{buf: make([]Event, capacity)}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[m.next] = ev
	m.next = (m.next + 1) % len(m.buf)
	if m.count < len(m.buf) {
		m.count++
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > m.count {
		n = m.count
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
