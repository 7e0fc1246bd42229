package engine

import "sync/atomic"

// Clock is a monotonic logical clock numbering the runs of a session.
//
// Every run, completed or failed, is stamped with a strictly increasing
// seq. Replaying the same event sequence yields the same seqs, which lets
// the journal line up a replayed session against the recorded one.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice only the session worker calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
