package adapters

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	uniqueViolationCode      = "23505"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation raised by pgx or lib/pq.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == uniqueViolationCode
}

// IsTransientConflict reports whether err is a serialization failure or a detected deadlock.
// Both abort the transaction and succeed when the whole unit of work is retried.
func IsTransientConflict(err error) bool {
	code := sqlState(err)
	return code == serializationFailureCode || code == deadlockDetectedCode
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}
