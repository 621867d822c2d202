package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/Facupelli/equipment-rental/store"
	"github.com/Facupelli/equipment-rental/store/postgresengine/internal/adapters"
)

const (
	dialectPostgres = "postgres"

	tableCustomers      = "customers"
	tableOrders         = "reservation_orders"
	tableOrderItems     = "reservation_order_items"
	tableAllocations    = "allocations"
	tableEquipmentItems = "equipment_items"
	tableStatusHistory  = "equipment_status_history"
	tableOutboxEvents   = "outbox_events"

	castJsonb = "?::jsonb"

	logMsgBuildQueryFailed    = "failed to build sql statement"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database statement execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitTxFailed      = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "booking store operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrOperation          = "operation"
	logAttrRowsAffected       = "rows_affected"
	logAttrExpectedRows       = "expected_rows"
	logAttrID                 = "id"
)

// statement is any goqu dataset that renders to SQL plus its positional arguments.
type statement interface {
	ToSQL() (string, []any, error)
}

var dialect = goqu.Dialect(dialectPostgres)

// Store is the PostgreSQL implementation of every repository the booking pipeline needs.
type Store struct {
	db               adapters.DBAdapter
	logger           store.Logger
	contextualLogger store.ContextualLogger
	metricsCollector store.MetricsCollector
	tracingCollector store.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db, nil), options...)
}

// NewStoreFromPGXPoolWithReplica creates a Store whose eventually consistent reads go to the replica pool.
func NewStoreFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (Store, error) {
	if primary == nil {
		return Store{}, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(primary, replica), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db, nil), options...)
}

// NewStoreFromSQLDBWithReplica creates a sql.DB backed Store with a read replica.
func NewStoreFromSQLDBWithReplica(primary *sql.DB, replica *sql.DB, options ...Option) (Store, error) {
	if primary == nil {
		return Store{}, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(primary, replica), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db, nil), options...)
}

// NewStoreFromSQLXWithReplica creates a sqlx.DB backed Store with a read replica.
func NewStoreFromSQLXWithReplica(primary *sqlx.DB, replica *sqlx.DB, options ...Option) (Store, error) {
	if primary == nil {
		return Store{}, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(primary, replica), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (Store, error) {
	s := Store{db: db}

	for _, option := range options {
		if err := option(&s); err != nil {
			return Store{}, err
		}
	}

	return s, nil
}

// InTransaction runs fn inside one read-committed transaction on the primary database.
// The transaction commits when fn returns nil and rolls back otherwise; fn's error is returned unchanged.
func (s Store) InTransaction(ctx context.Context, fn store.TxFunc) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		s.logError(ctx, logMsgBeginTxFailed, err)
		return errors.Join(store.ErrBeginningTransactionFailed, err)
	}

	if fnErr := fn(ctx, tx); fnErr != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			s.logWarn(ctx, logMsgRollbackFailed, rollbackErr)
		}

		return fnErr
	}

	if err = tx.Commit(ctx); err != nil {
		s.logError(ctx, logMsgCommitTxFailed, err)

		if adapters.IsTransientConflict(err) {
			return errors.Join(store.ErrConcurrencyConflict, err)
		}

		return errors.Join(store.ErrCommittingTransactionFailed, err)
	}

	return nil
}

// handle resolves the Handle a repository call runs on. Nil means the ambient pool.
func (s Store) handle(h store.Handle) store.Handle {
	if h == nil {
		return s.db
	}

	return h
}

func (s Store) toSQL(ctx context.Context, action string, stmt statement) (string, []any, error) {
	sqlQuery, args, err := stmt.ToSQL()
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrOperation, action)
		return "", nil, errors.Join(store.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, args, nil
}

// query runs a read statement. The caller must close the returned rows.
func (s Store) query(ctx context.Context, h store.Handle, action string, stmt statement) (store.Rows, error) {
	sqlQuery, args, err := s.toSQL(ctx, action, stmt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.handle(h).Query(ctx, sqlQuery, args...)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, s.mapDatabaseError(store.ErrQueryingFailed, err)
	}

	return rows, nil
}

// exec runs a write statement and returns the number of affected rows.
func (s Store) exec(ctx context.Context, h store.Handle, action string, stmt statement) (int64, error) {
	sqlQuery, args, err := s.toSQL(ctx, action, stmt)
	if err != nil {
		return 0, err
	}

	return s.execSQL(ctx, h, action, sqlQuery, args...)
}

func (s Store) execSQL(ctx context.Context, h store.Handle, action string, sqlQuery string, args ...any) (int64, error) {
	start := time.Now()
	result, err := s.handle(h).Exec(ctx, sqlQuery, args...)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		s.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return 0, s.mapDatabaseError(store.ErrExecutingFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, err)
		return 0, errors.Join(store.ErrGettingRowsAffectedFailed, err)
	}

	return rowsAffected, nil
}

// expectRows turns a short write into a concurrency conflict.
func (s Store) expectRows(ctx context.Context, action string, id fmt.Stringer, affected, expected int64) error {
	if affected >= expected {
		return nil
	}

	s.logOperation(ctx, logMsgConcurrencyConflict,
		logAttrOperation, action,
		logAttrID, id.String(),
		logAttrExpectedRows, expected,
		logAttrRowsAffected, affected,
	)

	return errors.Join(
		store.ErrConcurrencyConflict,
		fmt.Errorf("%s %s: %d of %d rows affected", action, id, affected, expected),
	)
}

func (s Store) mapDatabaseError(sentinel error, err error) error {
	switch {
	case adapters.IsUniqueViolation(err):
		return errors.Join(store.ErrDuplicateKey, sentinel, err)
	case adapters.IsTransientConflict(err):
		return errors.Join(store.ErrConcurrencyConflict, sentinel, err)
	default:
		return errors.Join(sentinel, err)
	}
}

// closeRows closes database rows and logs any errors.
func (s Store) closeRows(ctx context.Context, rows store.Rows) {
	if err := rows.Close(); err != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, err)
	}
}

func (s Store) scanError(ctx context.Context, err error) error {
	s.logError(ctx, logMsgScanRowFailed, err)
	return errors.Join(store.ErrScanningDBRowFailed, err)
}

func (s Store) rowsError(rows store.Rows) error {
	if err := rows.Err(); err != nil {
		return s.mapDatabaseError(store.ErrQueryingFailed, err)
	}

	return nil
}

func jsonb(payload []byte) any {
	return goqu.L(castJsonb, string(payload))
}
