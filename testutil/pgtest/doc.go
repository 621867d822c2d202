// Package pgtest connects integration tests to a real PostgreSQL database.
//
// Tests skip unless BOOKING_TEST_DSN is set. ADAPTER_TYPE picks the driver stack the
// postgresengine.Store runs on: pgx.pool (default), sql.db or sqlx.db.
package pgtest
