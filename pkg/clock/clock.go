// Package clock provides the wall-clock source injected into every
// service that stamps a row.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. Implementations must return UTC.
type Clock func() time.Time

// System is the process wall clock in UTC.
func System() time.Time {
	return time.Now().UTC()
}

// Fixed returns a Clock frozen at t. Advance moves it.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}
