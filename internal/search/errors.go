package search

import "errors"

// Query-path error kinds. Callers branch on these with errors.Is; raw
// provider errors stay wrapped underneath.
var (
	// ErrInvalidInput marks a malformed request (empty query, bad id).
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrieval marks an upstream retrieval failure that survived all
	// internal degradation attempts.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrTimeout marks resource exhaustion on the primary path.
	ErrTimeout = errors.New("search timed out")
)
