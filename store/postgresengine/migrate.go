package postgresengine

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const actionMigrate = "migrate"

// Migrate applies the embedded schema. Every statement is idempotent, so running it on an
// already migrated database is a no-op.
func (s Store) Migrate(ctx context.Context) (err error) {
	observer, ctx := s.observe(ctx, actionMigrate)
	defer func() { observer.finish(err) }()

	if _, err = s.execSQL(ctx, nil, actionMigrate, schemaSQL); err != nil {
		return err
	}

	s.logOperation(ctx, actionMigrate)

	return nil
}
