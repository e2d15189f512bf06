package corpuscache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/corpus"
)

// FileRepository keeps the corpus cache in a single local file.
type FileRepository struct {
	path string
}

// NewFileRepository creates a file-backed repository at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the cache file location.
func (r *FileRepository) Path() string { return r.path }

// Exists reports whether the cache file is present.
func (r *FileRepository) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(r.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", r.path, err)
}

// Load reads and decodes the cache file.
func (r *FileRepository) Load(_ context.Context) (corpus.Cache, error) {
	data, err := os.ReadFile(filepath.Clean(r.path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return corpus.Cache{}, fmt.Errorf("%s: %w", r.path, domain.ErrCacheNotFound)
		}
		return corpus.Cache{}, fmt.Errorf("read %s: %w", r.path, err)
	}

	c, err := Decode(data)
	if err != nil {
		return corpus.Cache{}, fmt.Errorf("%s: %w", r.path, err)
	}
	return c, nil
}

// Save writes the cache through a temp file in the same directory and renames it into
// place, so readers never observe a partially written cache.
func (r *FileRepository) Save(_ context.Context, c corpus.Cache) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Replace overwrites the cache file. The rename makes Save and Replace equivalent on disk.
func (r *FileRepository) Replace(ctx context.Context, c corpus.Cache) error {
	return r.Save(ctx, c)
}
