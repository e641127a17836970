package engine

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// Registrations use one Clock each as their serial: every completed advise
// takes the next value. Serials are local ordering metadata only; they are
// never replicated and never derived from wall-clock time.
//
// Clock is safe for concurrent use, though the member layer only calls it
// from the goroutine that owns the registration.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific value, e.g. a serial
// restored from a shard backend.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
