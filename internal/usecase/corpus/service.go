// Package corpus builds, persists and serves the embedded passage corpus.
//
// The cache is built once from a line-per-passage text file and reused on every
// later call. Nothing checks whether the source changed unless StaleCheck is set.
package corpus

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domcorpus "github.com/kailas-cloud/semsearch/internal/domain/corpus"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Options tune cache freshness handling.
type Options struct {
	// StaleCheck compares the source file hash with the one recorded in the cache.
	StaleCheck bool
	// RebuildOnStale rebuilds a stale cache instead of only logging a warning.
	RebuildOnStale bool
}

// Service owns the corpus cache lifecycle.
type Service struct {
	repo       Repository
	embed      domain.Embedder
	sourcePath string
	opts       Options
	logger     *zap.Logger

	mu     sync.Mutex
	loaded *domcorpus.Cache
}

// New creates a corpus service reading passages from sourcePath.
func New(
	repo Repository, embed domain.Embedder, sourcePath string,
	opts Options, logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		embed:      embed,
		sourcePath: sourcePath,
		opts:       opts,
		logger:     logger,
	}
}

// Exists reports whether a persisted cache is present.
func (s *Service) Exists(ctx context.Context) (bool, error) {
	ok, err := s.repo.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check corpus cache: %w", err)
	}
	return ok, nil
}

// Load reads the persisted cache verbatim.
func (s *Service) Load(ctx context.Context) (domcorpus.Cache, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		metrics.CorpusLoadsTotal.WithLabelValues("error").Inc()
		return domcorpus.Cache{}, fmt.Errorf("load corpus cache: %w", err)
	}
	if err := c.Validate(); err != nil {
		metrics.CorpusLoadsTotal.WithLabelValues("error").Inc()
		return domcorpus.Cache{}, fmt.Errorf("load corpus cache: %w", err)
	}
	metrics.CorpusLoadsTotal.WithLabelValues("success").Inc()
	return c, nil
}

// Build embeds every passage of the source file and overwrites the persisted cache.
func (s *Service) Build(ctx context.Context) (domcorpus.Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.build(ctx, true)
	if err != nil {
		return domcorpus.Cache{}, err
	}
	s.remember(c)
	return c, nil
}

// Ensure returns the corpus, loading the persisted cache when present and building it
// otherwise. Concurrent callers share one build; later calls are served from memory.
func (s *Service) Ensure(ctx context.Context) (domcorpus.Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded != nil {
		return *s.loaded, nil
	}

	c, err := s.loadOrBuild(ctx)
	if err != nil {
		return domcorpus.Cache{}, err
	}
	s.remember(c)
	return c, nil
}

func (s *Service) loadOrBuild(ctx context.Context) (domcorpus.Cache, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return domcorpus.Cache{}, err
	}
	if !exists {
		return s.build(ctx, false)
	}

	c, err := s.Load(ctx)
	if err != nil {
		return domcorpus.Cache{}, err
	}

	if !s.opts.StaleCheck {
		return c, nil
	}

	current, err := s.sourceHash()
	if err != nil {
		// Cache is usable without its source.
		s.logger.Warn("Cannot hash corpus source, skipping stale check",
			zap.String("path", s.sourcePath), zap.Error(err))
		return c, nil
	}
	if current == c.SourceHash {
		return c, nil
	}

	s.logger.Warn("Corpus cache is stale",
		zap.String("path", s.sourcePath),
		zap.String("cache_hash", c.SourceHash),
		zap.String("source_hash", current),
		zap.Bool("rebuild", s.opts.RebuildOnStale),
	)
	if !s.opts.RebuildOnStale {
		return c, nil
	}
	return s.build(ctx, true)
}

// build reads, embeds and persists the corpus. With overwrite=false a concurrent
// writer that won the race is honored by loading its cache instead.
func (s *Service) build(ctx context.Context, overwrite bool) (domcorpus.Cache, error) {
	c, err := s.embedSource(ctx)
	if err != nil {
		metrics.CorpusBuildsTotal.WithLabelValues("error").Inc()
		return domcorpus.Cache{}, err
	}

	if overwrite {
		err = s.repo.Replace(ctx, c)
	} else {
		err = s.repo.Save(ctx, c)
	}
	if errors.Is(err, domain.ErrCacheExists) {
		s.logger.Info("Corpus cache written by another builder, loading it")
		metrics.CorpusBuildsTotal.WithLabelValues("lost_race").Inc()
		return s.Load(ctx)
	}
	if err != nil {
		metrics.CorpusBuildsTotal.WithLabelValues("error").Inc()
		return domcorpus.Cache{}, fmt.Errorf("save corpus cache: %w", err)
	}

	metrics.CorpusBuildsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Corpus cache built",
		zap.String("path", s.sourcePath),
		zap.Int("entries", c.Len()),
		zap.Int("dimensions", c.Dimension()),
	)
	return c, nil
}

func (s *Service) embedSource(ctx context.Context) (domcorpus.Cache, error) {
	data, err := s.readSource()
	if err != nil {
		return domcorpus.Cache{}, err
	}

	lines, err := domcorpus.ReadLines(bytes.NewReader(data))
	if err != nil {
		return domcorpus.Cache{}, fmt.Errorf("read %s: %w: %w", s.sourcePath, domain.ErrCorpusUnavailable, err)
	}

	s.logger.Info("Building corpus cache",
		zap.String("path", s.sourcePath), zap.Int("lines", len(lines)))

	var embeddings [][]float32
	if len(lines) > 0 {
		res, err := domain.EmbedAll(ctx, s.embed, lines)
		if err != nil {
			return domcorpus.Cache{}, fmt.Errorf("embed corpus: %w", err)
		}
		embeddings = res.Embeddings
	}

	c, err := domcorpus.New(lines, embeddings, hashBytes(data))
	if err != nil {
		return domcorpus.Cache{}, fmt.Errorf("assemble corpus: %w", err)
	}
	return c, nil
}

func (s *Service) readSource() ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(s.sourcePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.sourcePath, domain.ErrCorpusUnavailable)
		}
		return nil, fmt.Errorf("read %s: %w: %w", s.sourcePath, domain.ErrCorpusUnavailable, err)
	}
	return data, nil
}

func (s *Service) sourceHash() (string, error) {
	data, err := s.readSource()
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func (s *Service) remember(c domcorpus.Cache) {
	s.loaded = &c
	metrics.CorpusEntries.Set(float64(c.Len()))
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
