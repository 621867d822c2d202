package store

import "errors"

var (
	// ErrNilDatabaseConnection is returned when an engine is constructed without a database connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrConcurrencyConflict is returned when a version-conditioned write affected fewer rows than expected.
	ErrConcurrencyConflict = errors.New("concurrency conflict, row version changed since read")

	// ErrDuplicateKey is returned when an insert collides with an existing unique key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a row looked up by its identifier does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrBuildingQueryFailed is returned when a SQL statement could not be built.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingFailed is returned when a read statement failed.
	ErrQueryingFailed = errors.New("querying failed")

	// ErrScanningDBRowFailed is returned when a result row could not be scanned.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrExecutingFailed is returned when a write statement failed.
	ErrExecutingFailed = errors.New("executing statement failed")

	// ErrGettingRowsAffectedFailed is returned when the affected row count could not be read.
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")

	// ErrBeginningTransactionFailed is returned when a transaction could not be opened.
	ErrBeginningTransactionFailed = errors.New("beginning transaction failed")

	// ErrCommittingTransactionFailed is returned when a transaction could not be committed.
	ErrCommittingTransactionFailed = errors.New("committing transaction failed")

	// ErrEncodingFailed is returned when a value could not be encoded for storage.
	ErrEncodingFailed = errors.New("encoding value for storage failed")

	// ErrDecodingFailed is returned when a stored value could not be decoded.
	ErrDecodingFailed = errors.New("decoding stored value failed")
)
