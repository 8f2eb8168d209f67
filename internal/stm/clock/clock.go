// Package clock implements the global commit clock of the STM runtime.
//
// The clock is a single 64-bit logical timestamp advanced once per writing
// commit. Attempts sample it at begin time; a change between two samples
// tells a reader that some writer committed in between and its read snapshot
// may be stale. The clock orders commits - it carries no per-thread
// structure, unlike a vector clock, because the commit protocol serializes
// writers globally.
package clock

import "sync/atomic"

// Timestamp is a sample of the global commit clock. Timestamps are totally
// ordered; t1 < t2 means the commit that published t1 happened before the
// one that published t2.
type Timestamp uint64

// Clock is the shared commit counter. The zero value is ready to use and
// reads as timestamp 0 (no commits yet). All methods are safe for
// concurrent use.
type Clock struct {
	now atomic.Uint64
}

// New returns a clock at timestamp 0.
func New() *Clock {
	return &Clock{}
}

// Sample returns the current timestamp. Called at attempt begin and
// re-checked during validation; must be cheap (one atomic load).
func (c *Clock) Sample() Timestamp {
	return Timestamp(c.now.Load())
}

// Advance publishes a new commit: it increments the clock and returns the
// timestamp of the commit just published.
func (c *Clock) Advance() Timestamp {
	return Timestamp(c.now.Add(1))
}
