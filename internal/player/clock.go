package player

import (
	"sync"
	"time"
)

// Controller is what the viewer needs from a playback driver beyond
// position and seek.
type Controller interface {
	CurrentPositionMillis() int64
	DurationMillis() int64
	SeekTo(ms int64) error
	TogglePause() error
	Playing() bool
}

// Clock is a silent driver that advances with wall time. It stands in for
// audio when there is none to play.
type Clock struct {
	mu       sync.Mutex
	now      func() time.Time
	base     int64
	anchor   time.Time
	paused   bool
	duration int64
}

// NewClock returns a running clock at position zero. durationMs of zero
// leaves the clock unbounded.
func NewClock(durationMs int64) *Clock {
	return newClock(durationMs, time.Now)
}

func newClock(durationMs int64, now func() time.Time) *Clock {
	return &Clock{
		now:      now,
		anchor:   now(),
		duration: max(0, durationMs),
	}
}

func (c *Clock) CurrentPositionMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Clock) positionLocked() int64 {
	pos := c.base
	if !c.paused {
		pos += c.now().Sub(c.anchor).Milliseconds()
	}
	if c.duration > 0 && pos > c.duration {
		return c.duration
	}
	return pos
}

func (c *Clock) DurationMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Clock) SetDurationMillis(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = max(0, ms)
}

func (c *Clock) SeekTo(ms int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms = max(0, ms)
	if c.duration > 0 {
		ms = min(ms, c.duration)
	}
	c.base = ms
	c.anchor = c.now()
	return nil
}

func (c *Clock) TogglePause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		c.anchor = c.now()
		c.paused = false
		return nil
	}
	c.base = c.positionLocked()
	c.paused = true
	return nil
}

func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.paused
}
