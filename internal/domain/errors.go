package domain

import "errors"

var (
	// ErrLoad reports an unreadable or empty document source.
	ErrLoad = errors.New("document load failed")

	// ErrEmbedding reports an embedding call that failed after retries
	// or returned a vector of unexpected dimensionality.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInvalidArgument reports a caller error such as k < 1.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGeneration reports a completion call that failed after retries.
	ErrGeneration = errors.New("generation failed")
)
