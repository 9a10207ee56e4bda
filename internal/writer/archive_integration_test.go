package writer

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rickgao/artblocks-activity/internal/database"
	"github.com/rickgao/artblocks-activity/internal/model"
)

// setupTestDB starts a PostgreSQL container and applies the archive schema.
// Returns a cleanup function that must be called after the test.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("activity"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, database.Migrate(ctx, pool, nil), "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func TestArchiveWriter_Postgres(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	w := NewArchiveWriter(WriterConfig{BatchSize: 10, FlushInterval: 50 * time.Millisecond, BufferSize: 10}, pool, nil)
	require.NoError(t, w.Start(ctx))

	sale := testNotification(model.RouteSale)
	listing := testNotification(model.RouteListing)
	require.NoError(t, w.Send(ctx, sale))
	require.NoError(t, w.Send(ctx, listing))
	// Same ID again is ignored.
	require.NoError(t, w.Send(ctx, sale))

	require.NoError(t, w.Stop(ctx))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM notifications`).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		route, price string
		buyer        *string
	)
	err := pool.QueryRow(ctx,
		`SELECT route, price_eth::text, buyer FROM notifications WHERE id = $1`, sale.ID.String(),
	).Scan(&route, &price, &buyer)
	require.NoError(t, err)
	assert.Equal(t, "sale", route)
	assert.Equal(t, "1.250000000000000000", price)
	require.NotNil(t, buyer)
	assert.Equal(t, "0xbuyer", *buyer)

	err = pool.QueryRow(ctx, `SELECT buyer FROM notifications WHERE id = $1`, listing.ID.String()).Scan(&buyer)
	require.NoError(t, err)
	assert.Nil(t, buyer)

	stats := w.Stats()
	assert.Equal(t, int64(2), stats.Inserts)
	assert.Equal(t, int64(1), stats.Conflicts)

	// Migrations are idempotent.
	require.NoError(t, database.Migrate(ctx, pool, nil))
}
