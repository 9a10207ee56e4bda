package dedup

import (
	"sync/atomic"
	"time"
)

// Watermark is a timestamp boundary in milliseconds since epoch.
// Events at or below it are considered processed.
type Watermark int64

// FromTime converts t to a Watermark.
func FromTime(t time.Time) Watermark {
	return Watermark(t.UnixMilli())
}

// Time returns the watermark as a UTC time.
func (w Watermark) Time() time.Time {
	return time.UnixMilli(int64(w)).UTC()
}

// Unix returns the watermark truncated to whole seconds.
func (w Watermark) Unix() int64 {
	return int64(w) / 1000
}

// Tracker holds the watermark for a single poller. It never moves backward.
//
// Advance is only called from the poll goroutine; Current may be read
// concurrently (health endpoints, metrics).
type Tracker struct {
	current atomic.Int64
}

// NewTracker creates a Tracker starting at start.
func NewTracker(start Watermark) *Tracker {
	t := &Tracker{}
	t.current.Store(int64(start))
	return t
}

// Current returns the current watermark.
func (t *Tracker) Current() Watermark {
	return Watermark(t.current.Load())
}

// Advance moves the watermark to candidate if it is strictly greater than the
// current value. Returns true if the watermark moved.
func (t *Tracker) Advance(candidate Watermark) bool {
	for {
		cur := t.current.Load()
		if int64(candidate) <= cur {
			return false
		}
		if t.current.CompareAndSwap(cur, int64(candidate)) {
			return true
		}
	}
}
