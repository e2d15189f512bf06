package corpuscache

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/corpus"
)

// kvStore is the consumer interface for the shared cache (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVRepository keeps the corpus cache under one Redis/Valkey key shared by all replicas.
type KVRepository struct {
	store kvStore
	key   string
}

// NewKVRepository creates a key-value backed repository.
func NewKVRepository(s kvStore, key string) *KVRepository {
	return &KVRepository{store: s, key: key}
}

// Exists reports whether the cache key is present.
func (r *KVRepository) Exists(ctx context.Context) (bool, error) {
	ok, err := r.store.Exists(ctx, r.key)
	if err != nil {
		return false, fmt.Errorf("check corpus cache key: %w", err)
	}
	return ok, nil
}

// Load fetches and decodes the cache blob.
func (r *KVRepository) Load(ctx context.Context) (corpus.Cache, error) {
	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return corpus.Cache{}, fmt.Errorf("key %s: %w", r.key, domain.ErrCacheNotFound)
		}
		return corpus.Cache{}, fmt.Errorf("get corpus cache: %w", err)
	}

	c, err := Decode(data)
	if err != nil {
		return corpus.Cache{}, fmt.Errorf("key %s: %w", r.key, err)
	}
	return c, nil
}

// Save stores the blob only if no other writer got there first (SET NX).
// Losing the race returns domain.ErrCacheExists.
func (r *KVRepository) Save(ctx context.Context, c corpus.Cache) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	if err := r.store.SetNX(ctx, r.key, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("key %s: %w", r.key, domain.ErrCacheExists)
		}
		return fmt.Errorf("set corpus cache: %w", err)
	}
	return nil
}

// Replace stores the blob unconditionally. Used for forced and stale rebuilds.
func (r *KVRepository) Replace(ctx context.Context, c corpus.Cache) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("set corpus cache: %w", err)
	}
	return nil
}
