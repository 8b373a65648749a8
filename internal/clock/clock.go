package clock

import (
	"sync"
	"time"
)

// Clock is the engine's wall-clock source. All elapsed figures are computed
// as now minus a persisted anchor, so the clock is read-only and never the
// sole record of time.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

func NewSystem() *System { return &System{} }

func (*System) Now() time.Time { return time.Now() }

// Manual is a settable clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to an absolute instant.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
