package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Facupelli/equipment-rental/store"
)

// pgxConn is what *pgxpool.Pool and pgx.Tx have in common.
type pgxConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// pgxHandle runs statements on primary, and reads of eventually consistent contexts on replica if set.
type pgxHandle struct {
	primary pgxConn
	replica pgxConn
}

func (h pgxHandle) Query(ctx context.Context, query string, args ...any) (store.Rows, error) {
	conn := h.primary
	if h.replica != nil && store.GetConsistencyLevel(ctx) == store.EventualConsistency {
		conn = h.replica
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgxRows{Rows: rows}, nil
}

func (h pgxHandle) Exec(ctx context.Context, query string, args ...any) (store.Result, error) {
	tag, err := h.primary.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgxResult{CommandTag: tag}, nil
}

// PGXAdapter is the DBAdapter on a pgx pool.
type PGXAdapter struct {
	pgxHandle
	pool *pgxpool.Pool
}

// NewPGXAdapter wraps pool. replica may be nil.
func NewPGXAdapter(pool *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	adapter := &PGXAdapter{pgxHandle: pgxHandle{primary: pool}, pool: pool}
	if replica != nil {
		adapter.replica = replica
	}

	return adapter
}

// BeginTx opens a read-committed transaction on the primary.
func (p *PGXAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}

	return pgxTx{pgxHandle: pgxHandle{primary: tx}, tx: tx}, nil
}

type pgxTx struct {
	pgxHandle
	tx pgx.Tx
}

func (t pgxTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// pgxRows only needs to give Close the error return store.Rows expects.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return nil
}

type pgxResult struct {
	pgconn.CommandTag
}

func (r pgxResult) RowsAffected() (int64, error) {
	return r.CommandTag.RowsAffected(), nil
}

var (
	_ DBAdapter = (*PGXAdapter)(nil)
	_ DBTx      = pgxTx{}
)
