// Package adapters lets the PostgreSQL engine run on pgx.Pool, sql.DB or sqlx.DB.
//
// Every adapter exposes the same DBAdapter: parameterized Query and Exec on the ambient pool and
// BeginTx for explicit transactions. Reads on the ambient pool go to a replica when one is configured
// and the context asks for eventual consistency.
package adapters
