package engine

import "sync/atomic"

// Clock is a monotonic logical clock for operation ordering.
//
// Every operation is stamped with a strictly increasing seq number from this
// clock. Wall-clock time is never used for ordering, so a journal read back
// in seq order reproduces the order operations were applied in.
//
// Clock is safe for concurrent use, although only the Run goroutine calls
// Next in practice.
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
// Used on reopen to continue from the last journaled seq.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
