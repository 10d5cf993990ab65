// Package testutil provides deterministic time and id sources for
// tests. Pinning both makes engine output, event ids, and generated
// artifacts byte-reproducible across runs.
package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock. Every Now call returns the
// current instant and advances it by a fixed step; a zero step freezes
// time entirely.
//
// Safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock creates a clock starting at start, advancing by step per
// Now call.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set rewinds or forwards the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
