package motion

import (
	"math"
	"sync"
	"time"
)

// CounterState is what a renderer reads for an animated statistic.
type CounterState struct {
	Value int `json:"value"`
}

// Counter tweens an integer from 0 to a target once triggered. It may be
// built before it becomes visible; it stays at 0 until Trigger.
type Counter struct {
	mu        sync.Mutex
	target    int
	duration  time.Duration
	startedAt time.Time
	triggered bool
	current   int
	fraction  float64
	stopped   bool
}

// NewCounter builds an idle counter. Negative targets are treated as 0.
func NewCounter(target int, duration time.Duration) *Counter {
	if target < 0 {
		target = 0
	}
	return &Counter{target: target, duration: duration}
}

// Trigger starts the tween at now. Only the first call has an effect.
func (c *Counter) Trigger(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.triggered || c.stopped {
		return
	}
	c.triggered = true
	c.startedAt = now
	if c.duration <= 0 {
		c.fraction = 1
		c.current = c.target
	}
}

// Tick samples the tween at now and returns the current value. Values never
// decrease, and once the full duration has elapsed the value is exactly the
// target.
func (c *Counter) Tick(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.triggered || c.stopped || c.fraction >= 1 {
		return c.current
	}
	fraction := float64(now.Sub(c.startedAt)) / float64(c.duration)
	if fraction > 1 {
		fraction = 1
	}
	if fraction <= c.fraction {
		return c.current
	}
	c.fraction = fraction
	if fraction >= 1 {
		c.current = c.target
		return c.current
	}
	if v := int(math.Floor(fraction * float64(c.target))); v > c.current {
		c.current = v
	}
	return c.current
}

// State returns the last sampled value.
func (c *Counter) State() CounterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CounterState{Value: c.current}
}

// Fraction returns elapsed progress in [0, 1].
func (c *Counter) Fraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fraction
}

// Target returns the final value.
func (c *Counter) Target() int { return c.target }

// Triggered reports whether Trigger has run.
func (c *Counter) Triggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered
}

// Done reports whether the counter has reached its target.
func (c *Counter) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered && c.fraction >= 1
}

// Stop freezes the counter where it is. Safe to call more than once.
func (c *Counter) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}
