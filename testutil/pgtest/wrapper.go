package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/shell/config"
	"github.com/Facupelli/equipment-rental/store/postgresengine"
)

const (
	envTestDSN     = "BOOKING_TEST_DSN"
	envAdapterType = "ADAPTER_TYPE"

	truncateAll = `TRUNCATE TABLE outbox_events, equipment_status_history, allocations,
		reservation_order_items, reservation_orders, equipment_items, customers CASCADE`
)

// Wrapper abstracts over the driver a Store was built on.
type Wrapper interface {
	Store() postgresengine.Store
	Exec(ctx context.Context, sqlQuery string, args ...any) error
	Close()
}

// PGXPoolWrapper wraps a pgxpool-based Store.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store postgresengine.Store
}

func (w *PGXPoolWrapper) Store() postgresengine.Store { return w.store }

func (w *PGXPoolWrapper) Exec(ctx context.Context, sqlQuery string, args ...any) error {
	_, err := w.pool.Exec(ctx, sqlQuery, args...)
	return err
}

func (w *PGXPoolWrapper) Close() { w.pool.Close() }

// SQLDBWrapper wraps a database/sql-based Store.
type SQLDBWrapper struct {
	db    *sql.DB
	store postgresengine.Store
}

func (w *SQLDBWrapper) Store() postgresengine.Store { return w.store }

func (w *SQLDBWrapper) Exec(ctx context.Context, sqlQuery string, args ...any) error {
	_, err := w.db.ExecContext(ctx, sqlQuery, args...)
	return err
}

func (w *SQLDBWrapper) Close() { _ = w.db.Close() }

// SQLXWrapper wraps a sqlx-based Store.
type SQLXWrapper struct {
	db    *sqlx.DB
	store postgresengine.Store
}

func (w *SQLXWrapper) Store() postgresengine.Store { return w.store }

func (w *SQLXWrapper) Exec(ctx context.Context, sqlQuery string, args ...any) error {
	_, err := w.db.ExecContext(ctx, sqlQuery, args...)
	return err
}

func (w *SQLXWrapper) Close() { _ = w.db.Close() }

// Open builds a migrated Store on an empty database, or skips the test when no database is configured.
// Tables are truncated again and the pool closed when the test ends.
func Open(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	dsn := os.Getenv(envTestDSN)
	if dsn == "" {
		t.Skipf("%s is not set, skipping PostgreSQL integration test", envTestDSN)
	}

	ctx := context.Background()
	wrapper := newWrapper(ctx, t, dsn, options)

	require.NoError(t, wrapper.Store().Migrate(ctx), "error migrating the test database")
	CleanUp(t, wrapper)

	t.Cleanup(func() {
		CleanUp(t, wrapper)
		wrapper.Close()
	})

	return wrapper
}

// CleanUp empties every booking table.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	require.NoError(t, wrapper.Exec(context.Background(), truncateAll), "error cleaning up the booking tables")
}

func newWrapper(ctx context.Context, t testing.TB, dsn string, options []postgresengine.Option) Wrapper {
	t.Helper()

	switch adapterType := strings.ToLower(os.Getenv(envAdapterType)); adapterType {
	case config.AdapterPGXPool, "":
		pool, err := config.NewPGXPool(ctx, dsn)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		s, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating store")

		return &PGXPoolWrapper{pool: pool, store: s}

	case config.AdapterSQLDB:
		db, err := config.NewSQLDB(ctx, dsn)
		require.NoError(t, err, "error connecting to DB in test setup")

		s, err := postgresengine.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating store")

		return &SQLDBWrapper{db: db, store: s}

	case config.AdapterSQLXDB:
		db, err := config.NewSQLX(ctx, dsn)
		require.NoError(t, err, "error connecting to DB in test setup")

		s, err := postgresengine.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating store")

		return &SQLXWrapper{db: db, store: s}

	default:
		panic(fmt.Sprintf("unsupported adapter type from env: %s", adapterType))
	}
}
