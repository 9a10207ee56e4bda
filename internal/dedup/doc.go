// Package dedup implements timestamp-watermark deduplication for polled feeds.
//
// A feed is polled in batches. Every event whose timestamp is strictly greater than
// the current watermark is new; everything else has already been processed. After a
// batch completes the watermark moves to the largest timestamp observed in it.
//
// Filter is a pure function over a batch. Tracker is the caller-owned state holder
// that only ever moves forward. Events sharing the exact watermark timestamp of a
// previous batch are treated as already seen.
package dedup
