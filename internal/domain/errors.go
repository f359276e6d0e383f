package domain

import "errors"

// Sentinel errors returned by the storage layer and checked with errors.Is
// by callers (the admin API, the worker loop, the CLI adapter).
var (
	// ErrDuplicateID indicates enqueue was called with an id that already
	// exists in the job table or the dead-letter table.
	ErrDuplicateID = errors.New("duplicate job id")

	// ErrNotFound indicates a lookup or update (dlq retry, a job outcome
	// report) found no matching row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed input rejected before any
	// mutation was attempted (bad state filter, missing required field).
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable indicates a transient storage failure: lock
	// contention exceeding the bounded wait, or a transaction timeout.
	// Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
