package writer

import (
	"time"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the capacity of the input queue. Rows beyond it are dropped.
	BufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		BufferSize:    1000,
	}
}

// notificationRow represents a row to be inserted into the notifications table.
type notificationRow struct {
	ID         string // UUID
	Route      string // "sale" or "listing"
	TokenID    string
	OccurredAt time.Time
	PriceETH   string // numeric as text
	Seller     string
	Buyer      string // empty for listings
	Collection string
	Title      string
	Permalink  string
	Embed      []byte // JSONB
	CreatedAt  time.Time
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}
