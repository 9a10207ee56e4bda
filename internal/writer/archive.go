package writer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// BatchSender is the subset of *pgxpool.Pool used by the writer.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// ArchiveWriter records delivered notifications in PostgreSQL.
// It implements notify.Sink.
type ArchiveWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input
	input chan notificationRow

	// Database
	db BatchSender

	// Batching
	batch       []notificationRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewArchiveWriter creates a new ArchiveWriter.
func NewArchiveWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *ArchiveWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &ArchiveWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan notificationRow, cfg.BufferSize),
		batch:  make([]notificationRow, 0, cfg.BatchSize),
	}
}

// Name implements notify.Sink.
func (w *ArchiveWriter) Name() string { return "archive" }

// Send queues n for insertion. It never blocks; when the queue is full the
// notification is dropped from the archive.
func (w *ArchiveWriter) Send(ctx context.Context, n model.Notification) error {
	row := w.transform(n)

	select {
	case w.input <- row:
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("archive queue full, dropping notification", "id", row.ID)
	}
	return nil
}

// Start begins consuming notifications and writing to the database.
func (w *ArchiveWriter) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop(ctx)

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop(ctx)

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer, draining queued rows.
func (w *ArchiveWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
	}

	// Final drain and flush, on the caller's context since ours is cancelled.
drain:
	for {
		select {
		case row := <-w.input:
			w.appendRow(row)
		default:
			break drain
		}
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *ArchiveWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input queue and accumulates batches.
func (w *ArchiveWriter) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case row := <-w.input:
			if w.appendRow(row) {
				w.flush(ctx)
			}
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *ArchiveWriter) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(ctx)
		}
	}
}

// appendRow adds a row to the batch and reports whether the batch is full.
func (w *ArchiveWriter) appendRow(row notificationRow) bool {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts a Notification to a notificationRow.
func (w *ArchiveWriter) transform(n model.Notification) notificationRow {
	embed, err := json.Marshal(n.Embed)
	if err != nil {
		embed = []byte("{}")
	}

	row := notificationRow{
		ID:         n.ID.String(),
		Route:      n.Route.Lower(),
		TokenID:    n.Event.TokenID,
		OccurredAt: n.Event.Time(),
		PriceETH:   n.Event.Price.String(),
		Seller:     n.Event.Seller.Address,
		Collection: n.Metadata.CollectionName,
		Title:      n.Embed.Title,
		Permalink:  n.Event.Permalink,
		Embed:      embed,
		CreatedAt:  n.CreatedAt.UTC(),
	}
	if n.Event.Buyer != nil {
		row.Buyer = n.Event.Buyer.Address
	}
	return row
}

// flush writes the current batch to the database.
func (w *ArchiveWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]notificationRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed notifications",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *ArchiveWriter) batchInsert(ctx context.Context, rows []notificationRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO notifications (id, route, token_id, occurred_at, price_eth, seller, buyer, collection, title, permalink, embed, created_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.Route, r.TokenID, r.OccurredAt, r.PriceETH, r.Seller, r.Buyer, r.Collection, r.Title, r.Permalink, r.Embed, r.CreatedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
