package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/db"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/corpuscache"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	"github.com/kailas-cloud/semsearch/internal/transport/hashing"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	"github.com/kailas-cloud/semsearch/internal/transport/tiktoken"
	"github.com/kailas-cloud/semsearch/internal/transport/words"
	corpusuc "github.com/kailas-cloud/semsearch/internal/usecase/corpus"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
)

// app is the composition root shared by serve and build.
type app struct {
	store     db.Store
	embedder  *embeddinguc.InstrumentedEmbedder
	tokenizer domain.Tokenizer
	corpus    *corpusuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCorpusMetrics()

	a := &app{}

	if cfg.Database.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		a.store = store

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	a.embedder = buildEmbedder(cfg, a.store, logger)

	tok, err := buildTokenizer(cfg.Tokenizer)
	if err != nil {
		a.close()
		return nil, err
	}
	a.tokenizer = tok

	var repo corpusuc.Repository
	switch cfg.Corpus.CacheBackend {
	case config.CacheBackendKV:
		repo = corpuscache.NewKVRepository(a.store, cfg.Corpus.CacheKey)
	default:
		repo = corpuscache.NewFileRepository(cfg.Corpus.CachePath)
	}

	a.corpus = corpusuc.New(repo, a.embedder, cfg.Corpus.SourcePath, corpusuc.Options{
		StaleCheck:     cfg.Corpus.StaleCheck,
		RebuildOnStale: cfg.Corpus.RebuildOnStale,
	}, logger)

	logger.Info("Components created",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", modelName(cfg.Embedding)),
		zap.String("tokenizer", cfg.Tokenizer.Kind),
		zap.String("cache_backend", cfg.Corpus.CacheBackend),
	)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	ec := cfg.Embedding

	var base domain.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		// Transport metrics are built into the OpenAI embedder.
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			BatchSize:  ec.BatchSize,
			Provider:   ec.Provider,
			Logger:     logger,
		})
	default:
		base = hashing.NewEmbedder(ec.Dimensions)
	}

	embedder := base
	if cfg.Search.QueryCache && store != nil {
		embedder = embcache.New(base, store, modelName(ec),
			time.Duration(cfg.Search.QueryCacheTTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, modelName(ec), ec.BatchSize, logger)
}

func buildTokenizer(tc config.TokenizerConfig) (domain.Tokenizer, error) {
	switch tc.Kind {
	case config.TokenizerWords:
		return words.New(), nil
	default:
		tok, err := tiktoken.New(tc.Encoding)
		if err != nil {
			return nil, fmt.Errorf("create tokenizer: %w", err)
		}
		return tok, nil
	}
}

// modelName identifies the vector space. Query cache keys depend on it.
func modelName(ec config.EmbeddingConfig) string {
	if ec.Provider == config.ProviderHashing {
		return fmt.Sprintf("hashing-%d", ec.Dimensions)
	}
	return ec.Model
}

func tokenizerLabel(tc config.TokenizerConfig) string {
	if tc.Kind == config.TokenizerWords {
		return "words"
	}
	if tc.Encoding == "r50k_base" {
		return "GPT-2"
	}
	return tc.Encoding
}
