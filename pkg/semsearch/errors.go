package semsearch

import "github.com/kailas-cloud/semsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrCorpusUnavailable      = domain.ErrCorpusUnavailable
	ErrCacheCorrupt           = domain.ErrCacheCorrupt
	ErrInvalidK               = domain.ErrInvalidK
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrEmptyQuery             = domain.ErrEmptyQuery
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
