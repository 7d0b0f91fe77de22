package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic clock for timing tests. Every call to Now
// advances it by a fixed step, so a measurement bracketed by two Now calls
// always takes exactly one step.
//
// Thread-safety: all methods are safe for concurrent use.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock returns a clock starting at the Unix epoch.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{now: time.Unix(0, 0).UTC(), step: step}
}

// Now returns the current time and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == 0 {
		return 0
	}
	return int(c.now.Sub(time.Unix(0, 0).UTC()) / c.step)
}

// Reset rewinds the clock to the epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(0, 0).UTC()
}

// FixedID returns the same run identifier every time.
type FixedID string

// NewID implements the run identifier source used by the benchmark driver.
func (id FixedID) NewID() (string, error) {
	if id == "" {
		return "test-run-default", nil
	}
	return string(id), nil
}
