package app

import (
	"sync"
	"time"

	"radrush-quiz-service/internal/clock"
)

// Countdown tracks the time left on the live question. Remaining time is
// derived from the start instant, so reads never drift.
type Countdown struct {
	clock clock.Clock

	mu        sync.Mutex
	limit     time.Duration
	startedAt time.Time
	frozen    time.Duration
	active    bool
	expired   bool
	gen       uint64
	timer     clock.Timer
}

func NewCountdown(c clock.Clock) *Countdown {
	return &Countdown{clock: c}
}

// Start resets the countdown to limit and activates it. onExpire runs at most
// once, after which the remaining time reads exactly zero. Restarting
// invalidates any expiry still pending from the previous run.
func (c *Countdown) Start(limit time.Duration, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.limit = limit
	c.startedAt = c.clock.Now()
	c.frozen = limit
	c.active = true
	c.expired = false
	c.timer = c.clock.AfterFunc(limit, func() {
		c.mu.Lock()
		if c.gen != gen || !c.active {
			c.mu.Unlock()
			return
		}
		c.active = false
		c.expired = true
		c.frozen = 0
		c.timer = nil
		c.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
	})
}

// Stop deactivates the countdown and returns the time that was left.
func (c *Countdown) Stop() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return c.frozen
	}
	c.frozen = c.remainingLocked()
	c.active = false
	c.stopTimerLocked()
	return c.frozen
}

// Remaining returns the time left, clamped at zero.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return c.frozen
	}
	return c.remainingLocked()
}

// Active reports whether the countdown is ticking.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Expired reports whether the deadline has passed, even if the expiry
// callback has not run yet.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired {
		return true
	}
	return c.active && c.remainingLocked() <= 0
}

func (c *Countdown) remainingLocked() time.Duration {
	left := c.limit - c.clock.Now().Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
