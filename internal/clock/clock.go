// Package clock abstracts time so session timing can be driven by tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies monotonic timestamps.
type Clock interface {
	Now() time.Time
}

// Real uses the system clock. time.Now carries a monotonic reading, so
// differences between two values are unaffected by wall-clock jumps.
type Real struct{}

// Now implements Clock.
func (Real) Now() time.Time { return time.Now() }

// Manual is a Clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock by d. Negative values move it backwards.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
