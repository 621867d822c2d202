package adapters

import (
	"context"

	"github.com/Facupelli/equipment-rental/store"
)

// DBAdapter defines the database operations needed by the engine.
type DBAdapter interface {
	store.Handle
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx is an open transaction. It is a store.Handle that can be committed or rolled back.
type DBTx interface {
	store.Handle
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
