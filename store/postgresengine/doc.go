// Package postgresengine is the PostgreSQL implementation of the booking pipeline's persistence.
//
// One Store serves every repository interface declared by the feature packages: reservation
// orders with their items and allocations, equipment items with status history, customers, the
// transactional outbox and the availability source. Statements are built with goqu in prepared
// mode and run through an internal adapter over pgxpool.Pool, sql.DB or sqlx.DB.
//
// Every repository method takes an explicit store.Handle. A nil Handle runs the statement on the
// ambient pool; InTransaction opens a transaction and hands its Handle to the callback, which
// passes it on to every repository call that must join the unit of work.
//
// Writes of equipment items are conditioned on the version read earlier, and reservation status
// updates on the status read earlier. Both return store.ErrConcurrencyConflict when the row moved.
package postgresengine
