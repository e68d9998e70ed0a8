package clock

import (
	"sync"
	"time"
)

// Clock is the device clock shared by store timestamps and cancellation
// window checks.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time { return time.Now() }

// Manual is a settable clock for tests and simulations.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock frozen at now.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

// Now returns the frozen time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Sequencer issues strictly increasing Unix-nanosecond timestamps from a
// Clock, even when the clock stalls or steps backwards.
type Sequencer struct {
	clock Clock

	mu   sync.Mutex
	last int64
}

// NewSequencer creates a Sequencer reading c.
func NewSequencer(c Clock) *Sequencer {
	return &Sequencer{clock: c}
}

// Next returns the next timestamp.
func (s *Sequencer) Next() int64 {
	now := s.clock.Now().UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}
