package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time and the zone reservation dates and times are
// interpreted in.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

// New returns a wall clock reporting time in loc.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return realClock{loc: loc}
}

func (c realClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c realClock) Location() *time.Location { return c.loc }

// Fixed is a settable clock for tests and one-off sweeps.
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixed returns a Fixed clock frozen at now; its location is now's location.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

func (f *Fixed) Location() *time.Location {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now.Location()
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
