// Package clock abstracts the time source so schedule evaluation can be
// driven by a simulated clock in tests, without real delays.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time in the deployment's configured zone.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by the real time, localized to loc.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

type systemClock struct {
	loc *time.Location
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Simulated is a settable clock for deterministic tests. It is safe for
// concurrent use.
type Simulated struct {
	mu  sync.Mutex
	now time.Time
}

// NewSimulated creates a simulated clock frozen at t.
func NewSimulated(t time.Time) *Simulated {
	return &Simulated{now: t}
}

func (c *Simulated) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Simulated) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Simulated) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
