package corpus

import (
	"context"

	domcorpus "github.com/kailas-cloud/semsearch/internal/domain/corpus"
)

// Repository persists the corpus cache.
type Repository interface {
	Exists(ctx context.Context) (bool, error)
	// Load returns domain.ErrCacheNotFound when nothing is persisted and
	// domain.ErrCacheCorrupt when the payload cannot be decoded.
	Load(ctx context.Context) (domcorpus.Cache, error)
	// Save writes a new cache. Returns domain.ErrCacheExists when another writer won.
	Save(ctx context.Context, c domcorpus.Cache) error
	// Replace overwrites any existing cache.
	Replace(ctx context.Context, c domcorpus.Cache) error
}
