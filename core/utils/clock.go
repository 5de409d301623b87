package utils

import (
	"sync"
	"time"
)

// Clock supplies creation timestamps to the incident service.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return NowUTC() }

// NowUTC returns the current time in UTC truncated to microseconds, the
// precision both supported databases keep.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ManualClock is a settable Clock for tests and deterministic generation.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManualClock starts at start; every Now call advances it by step.
func NewManualClock(start time.Time, step time.Duration) *ManualClock {
	return &ManualClock{now: start.UTC(), step: step}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
