package domain

import "errors"

var (
	// ErrCorpusUnavailable signals a missing or unreadable corpus source file on a cold build.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrCacheCorrupt signals a persisted corpus cache that cannot be decoded into the expected shape.
	ErrCacheCorrupt = errors.New("corpus cache corrupt")
	// ErrCacheNotFound signals that no persisted corpus cache exists yet.
	ErrCacheNotFound = errors.New("corpus cache not found")
	// ErrCacheExists signals that another writer persisted the corpus cache first.
	ErrCacheExists = errors.New("corpus cache already exists")
	// ErrInvalidK signals a non-positive result count.
	ErrInvalidK = errors.New("k must be positive")
	// ErrDimensionMismatch signals a query vector whose length differs from the corpus vectors.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyQuery signals a blank query text.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
