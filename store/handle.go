package store

import "context"

// Handle is the explicit database handle passed into repository calls.
// It is either the engine's connection pool or an open transaction.
type Handle interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

// Rows defines the interface for query result rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Result defines the interface for execution results.
type Result interface {
	RowsAffected() (int64, error)
}

// TxFunc is the unit of work executed by InTransaction implementations.
// Returning an error rolls the transaction back.
type TxFunc func(ctx context.Context, tx Handle) error
