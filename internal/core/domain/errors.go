package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync run is already executing.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrNoSession indicates the external video host session handshake
	// did not complete within its timeout. Video sync is skipped for the
	// run, content sync is unaffected.
	ErrNoSession = errors.New("no video session available")

	// ErrSyncStopped indicates a run was cancelled cooperatively.
	ErrSyncStopped = errors.New("sync stopped")

	// ErrNotScheduled indicates no background work exists to operate on.
	ErrNotScheduled = errors.New("no work scheduled")
)
