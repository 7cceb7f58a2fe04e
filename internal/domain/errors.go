package domain

import "errors"

// Failure modes of the retrieval lifecycle. Callers match with errors.Is.
var (
	// ErrCorpusEmpty means no usable records were found at build time.
	ErrCorpusEmpty = errors.New("corpus contains no usable records")

	// ErrCacheNotFound means one or more cache artifacts are absent.
	// Recoverable by building the index.
	ErrCacheNotFound = errors.New("index cache not found")

	// ErrCacheCorrupt means the artifacts are present but unreadable or
	// inconsistent with each other. Never partially loaded.
	ErrCacheCorrupt = errors.New("index cache corrupt")

	// ErrInvalidInput means a bad top-k or a dimension mismatch at query time.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotReady means a query arrived before a successful build or load.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrProviderFailure means the embedding provider call failed or timed out.
	ErrProviderFailure = errors.New("embedding provider failure")
)
