package clock

import "sync/atomic"

// Clock is the global simulated-time counter. It only moves forward.
type Clock struct {
	tick atomic.Int64
}

// New returns a clock starting at tick 0.
func New() *Clock {
	return &Clock{}
}

// Now returns the current tick.
func (c *Clock) Now() int64 {
	return c.tick.Load()
}

// Advance moves the clock forward by exactly one tick and returns the new value.
func (c *Clock) Advance() int64 {
	return c.tick.Add(1)
}

// Restore sets the clock to t when resuming from persisted history. It never
// moves the clock backwards.
func (c *Clock) Restore(t int64) {
	for {
		cur := c.tick.Load()
		if t <= cur {
			return
		}
		if c.tick.CompareAndSwap(cur, t) {
			return
		}
	}
}
