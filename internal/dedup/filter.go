package dedup

// TimestampFunc extracts the event timestamp in milliseconds since epoch.
// An error marks the event as malformed.
type TimestampFunc[E any] func(E) (int64, error)

// Result is the outcome of filtering one batch.
type Result[E any] struct {
	// New holds events newer than the input watermark, in received order.
	New []E

	// Watermark is the candidate watermark: the max of the input watermark
	// and every well-formed timestamp in the batch.
	Watermark Watermark

	// Seen counts events at or below the input watermark.
	Seen int

	// Malformed counts events whose timestamp could not be extracted.
	Malformed int
}

// Filter partitions batch into new and already-seen events relative to watermark.
// The batch is never re-sorted. Malformed events are excluded from both the new
// set and the watermark computation.
func Filter[E any](batch []E, watermark Watermark, timestamp TimestampFunc[E]) Result[E] {
	res := Result[E]{Watermark: watermark}

	for _, event := range batch {
		ts, err := timestamp(event)
		if err != nil {
			res.Malformed++
			continue
		}

		if Watermark(ts) > watermark {
			res.New = append(res.New, event)
		} else {
			res.Seen++
		}

		if Watermark(ts) > res.Watermark {
			res.Watermark = Watermark(ts)
		}
	}

	return res
}
