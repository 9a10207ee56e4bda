package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// fakeDB records queued statements and reports each as inserted unless its
// ID is in conflicts.
type fakeDB struct {
	mu        sync.Mutex
	batches   [][]string
	conflicts map[string]bool
	err       error
	ctxs      []context.Context
}

func (f *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ctxs = append(f.ctxs, ctx)
	ids := make([]string, 0, b.Len())
	for _, q := range b.QueuedQueries {
		ids = append(ids, q.Arguments[0].(string))
	}
	f.batches = append(f.batches, ids)
	return &fakeResults{ids: ids, conflicts: f.conflicts, err: f.err}
}

func (f *fakeDB) rows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

type fakeResults struct {
	ids       []string
	pos       int
	conflicts map[string]bool
	err       error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	id := r.ids[r.pos]
	r.pos++
	if r.conflicts[id] {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

func testNotification(route model.Route) model.Notification {
	ev := model.Event{
		Kind:      model.KindSale,
		RawType:   "successful",
		Timestamp: 1_700_000_000_000,
		TokenID:   "78000123",
		Permalink: "https://opensea.io/assets/0xa7d8/78000123",
		Price:     decimal.RequireFromString("1.25"),
		Seller:    model.Account{Address: "0xseller", Username: "alice"},
	}
	if route == model.RouteSale {
		ev.Buyer = &model.Account{Address: "0xbuyer", Username: "bob"}
	} else {
		ev.Kind = model.KindListing
		ev.RawType = "created"
	}
	return model.Notification{
		ID:       uuid.New(),
		Route:    route,
		Event:    ev,
		Metadata: model.TokenMetadata{DisplayName: "Fidenza #123", CreatorName: "Tyler Hobbs", CollectionName: "Curated"},
		Embed: model.Embed{
			Title:  "Fidenza #123 - Tyler Hobbs",
			URL:    ev.Permalink,
			Fields: []model.EmbedField{{Name: "Sale Price", Value: "1.25ETH"}},
		},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestArchiveWriter_Transform(t *testing.T) {
	w := NewArchiveWriter(WriterConfig{}, nil, nil)

	sale := testNotification(model.RouteSale)
	row := w.transform(sale)

	assert.Equal(t, sale.ID.String(), row.ID)
	assert.Equal(t, "sale", row.Route)
	assert.Equal(t, "78000123", row.TokenID)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).UTC(), row.OccurredAt)
	assert.Equal(t, "1.25", row.PriceETH)
	assert.Equal(t, "0xseller", row.Seller)
	assert.Equal(t, "0xbuyer", row.Buyer)
	assert.Equal(t, "Curated", row.Collection)
	assert.Equal(t, "Fidenza #123 - Tyler Hobbs", row.Title)
	assert.JSONEq(t,
		`{"title":"Fidenza #123 - Tyler Hobbs","url":"https://opensea.io/assets/0xa7d8/78000123","fields":[{"name":"Sale Price","value":"1.25ETH"}]}`,
		string(row.Embed))

	listing := w.transform(testNotification(model.RouteListing))
	assert.Equal(t, "listing", listing.Route)
	assert.Empty(t, listing.Buyer)
}

func TestArchiveWriter_DefaultConfig(t *testing.T) {
	w := NewArchiveWriter(WriterConfig{}, nil, nil)
	assert.Equal(t, DefaultWriterConfig(), w.cfg)
	assert.Equal(t, "archive", w.Name())
}

func TestArchiveWriter_FlushOnBatchSize(t *testing.T) {
	db := &fakeDB{}
	w := NewArchiveWriter(WriterConfig{BatchSize: 2, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	require.NoError(t, w.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, w.Send(ctx, testNotification(model.RouteSale)))
	require.NoError(t, w.Send(ctx, testNotification(model.RouteListing)))

	require.Eventually(t, func() bool { return db.rows() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop(context.Background()))
	stats := w.Stats()
	assert.Equal(t, int64(2), stats.Inserts)
	assert.Equal(t, int64(1), stats.Flushes)
}

func TestArchiveWriter_StopFlushesPending(t *testing.T) {
	db := &fakeDB{}
	w := NewArchiveWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, w.Send(context.Background(), testNotification(model.RouteSale)))
	require.NoError(t, w.Stop(context.Background()))

	assert.Equal(t, 1, db.rows())
	assert.Equal(t, int64(1), w.Stats().Inserts)
}

type stopKey struct{}

func TestArchiveWriter_StopFlushesOnCallerContext(t *testing.T) {
	db := &fakeDB{}
	w := NewArchiveWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Send(context.Background(), testNotification(model.RouteSale)))

	stopCtx := context.WithValue(context.Background(), stopKey{}, "shutdown")
	require.NoError(t, w.Stop(stopCtx))

	db.mu.Lock()
	defer db.mu.Unlock()
	require.Len(t, db.ctxs, 1)
	assert.NoError(t, db.ctxs[0].Err(), "final flush must not use the cancelled run context")
	assert.Equal(t, "shutdown", db.ctxs[0].Value(stopKey{}))
}

func TestArchiveWriter_CountsConflicts(t *testing.T) {
	n1 := testNotification(model.RouteSale)
	n2 := testNotification(model.RouteSale)
	db := &fakeDB{conflicts: map[string]bool{n2.ID.String(): true}}

	w := NewArchiveWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	w.appendRow(w.transform(n1))
	w.appendRow(w.transform(n2))
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Inserts)
	assert.Equal(t, int64(1), stats.Conflicts)
	assert.Equal(t, int64(1), stats.Flushes)
}

func TestArchiveWriter_InsertError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	w := NewArchiveWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	w.appendRow(w.transform(testNotification(model.RouteSale)))
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Errors)
	assert.Zero(t, stats.Inserts)
	assert.Zero(t, stats.Flushes)
}

func TestArchiveWriter_DropsWhenQueueFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	w := NewArchiveWriter(WriterConfig{BatchSize: 10, FlushInterval: time.Hour, BufferSize: 1}, &fakeDB{}, nil)

	ctx := context.Background()
	require.NoError(t, w.Send(ctx, testNotification(model.RouteSale)))
	require.NoError(t, w.Send(ctx, testNotification(model.RouteSale)))

	assert.Equal(t, int64(1), w.Stats().Dropped)
}
