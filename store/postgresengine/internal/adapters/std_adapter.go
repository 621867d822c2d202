package adapters

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/Facupelli/equipment-rental/store"
)

// stdConn is what *sql.DB, *sqlx.DB and *sql.Tx have in common.
// *sql.Rows and sql.Result already satisfy store.Rows and store.Result.
type stdConn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type stdHandle struct {
	primary stdConn
	replica stdConn
}

func (h stdHandle) Query(ctx context.Context, query string, args ...any) (store.Rows, error) {
	conn := h.primary
	if h.replica != nil && store.GetConsistencyLevel(ctx) == store.EventualConsistency {
		conn = h.replica
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (h stdHandle) Exec(ctx context.Context, query string, args ...any) (store.Result, error) {
	result, err := h.primary.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return result, nil
}

var readCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// SQLAdapter is the DBAdapter on a database/sql pool, typically opened with the lib/pq driver.
type SQLAdapter struct {
	stdHandle
	db *sql.DB
}

// NewSQLAdapter wraps db. replica may be nil.
func NewSQLAdapter(db *sql.DB, replica *sql.DB) *SQLAdapter {
	adapter := &SQLAdapter{stdHandle: stdHandle{primary: db}, db: db}
	if replica != nil {
		adapter.replica = replica
	}

	return adapter
}

func (s *SQLAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTx(ctx, readCommitted)
	if err != nil {
		return nil, err
	}

	return newSQLTx(tx), nil
}

// SQLXAdapter is the DBAdapter on a sqlx pool.
type SQLXAdapter struct {
	stdHandle
	db *sqlx.DB
}

// NewSQLXAdapter wraps db. replica may be nil.
func NewSQLXAdapter(db *sqlx.DB, replica *sqlx.DB) *SQLXAdapter {
	adapter := &SQLXAdapter{stdHandle: stdHandle{primary: db}, db: db}
	if replica != nil {
		adapter.replica = replica
	}

	return adapter
}

func (s *SQLXAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTxx(ctx, readCommitted)
	if err != nil {
		return nil, err
	}

	return newSQLTx(tx.Tx), nil
}

type sqlTx struct {
	stdHandle
	tx *sql.Tx
}

func newSQLTx(tx *sql.Tx) sqlTx {
	return sqlTx{stdHandle: stdHandle{primary: tx}, tx: tx}
}

func (t sqlTx) Commit(context.Context) error { return t.tx.Commit() }

func (t sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

var (
	_ DBAdapter = (*SQLAdapter)(nil)
	_ DBAdapter = (*SQLXAdapter)(nil)
	_ DBTx      = sqlTx{}
)
