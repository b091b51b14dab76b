// Package clock provides the wall clock used for state and history stamps.
package clock

import (
	"sync"
	"time"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Stamp formats the clock's current time for state and history records.
func Stamp(c monitor.Clock) string {
	return c.Now().Format(monitor.TimestampLayout)
}

// System reads the wall clock in a fixed location. Stamps are written in
// local time unless another location is configured.
type System struct {
	loc *time.Location
}

// NewSystem returns a wall clock for loc. A nil loc means time.Local.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{loc: loc}
}

// Now returns the current time in the clock's location.
func (s *System) Now() time.Time {
	return time.Now().In(s.loc)
}

// Fixed is a settable clock.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the frozen time.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
