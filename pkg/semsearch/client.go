package semsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/db"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/repository/corpuscache"
	"github.com/kailas-cloud/semsearch/internal/transport/hashing"
	"github.com/kailas-cloud/semsearch/internal/transport/tiktoken"
	corpusuc "github.com/kailas-cloud/semsearch/internal/usecase/corpus"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDimensions       = 384
	defaultEncoding         = "r50k_base"
	defaultRedisKey         = "semsearch:corpus"
)

// Result is one ranked passage.
type Result struct {
	Text  string
	Score float64
}

// Response is a ranked query with its display tokens.
type Response struct {
	Query   string
	Tokens  []string
	Results []Result
}

// Client is the semsearch SDK entry point.
type Client struct {
	store     db.Store
	corpus    *corpusuc.Service
	search    *searchuc.Service
	tokenizer domain.Tokenizer
	obs       *observer
}

// New creates a Client. The provided context is used for the database readiness check.
// The corpus is not read until the first Search or Build call.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{dimensions: defaultDimensions}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.corpusPath == "" {
		return nil, errors.New("semsearch: corpus file required (use WithCorpusFile)")
	}
	if cfg.embedder == nil && cfg.dimensions <= 0 {
		return nil, fmt.Errorf("semsearch: hashing dimensions must be positive, got %d", cfg.dimensions)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	tok := cfg.tokenizer
	if tok == nil {
		t, err := tiktoken.New(defaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("semsearch: create tokenizer: %w", err)
		}
		tok = t
	}

	var store db.Store
	var repo corpusuc.Repository
	if cfg.redisAddr != "" {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    []string{cfg.redisAddr},
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("semsearch: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("semsearch: database not ready: %w", err)
		}
		store = s
		key := cfg.redisKey
		if key == "" {
			key = defaultRedisKey
		}
		repo = corpuscache.NewKVRepository(s, key)
	} else {
		path := cfg.cachePath
		if path == "" {
			path = cfg.corpusPath + ".emb"
		}
		repo = corpuscache.NewFileRepository(path)
	}

	return wireClient(store, repo, tok, cfg, obs), nil
}

func wireClient(
	store db.Store, repo corpusuc.Repository, tok domain.Tokenizer,
	cfg *clientConfig, obs *observer,
) *Client {
	var emb domain.Embedder = hashing.NewEmbedder(cfg.dimensions)
	if cfg.embedder != nil {
		emb = adaptEmbedder(cfg.embedder)
	}

	logger := zap.NewNop()
	corpusSvc := corpusuc.New(repo, emb, cfg.corpusPath, corpusuc.Options{
		StaleCheck:     cfg.staleCheck,
		RebuildOnStale: cfg.staleCheck,
	}, logger)

	return &Client{
		store:     store,
		corpus:    corpusSvc,
		search:    searchuc.New(corpusSvc, emb, tok, 0, logger),
		tokenizer: tok,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Search returns the k passages most similar to query, best first.
func (c *Client) Search(ctx context.Context, query string, k int) ([]Result, error) {
	resp, err := c.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Query is Search plus the display tokens of the query.
func (c *Client) Query(ctx context.Context, query string, k int) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	r, err := c.search.Query(ctx, query, k)
	if err != nil {
		return Response{}, fmt.Errorf("query: %w", err)
	}

	results := make([]Result, len(r.Results))
	for i, s := range r.Results {
		results[i] = Result{Text: s.Text(), Score: s.Score()}
	}
	return Response{Query: r.Query, Tokens: r.Tokens, Results: results}, nil
}

// Tokenize splits text with the configured tokenizer.
func (c *Client) Tokenize(text string) []string {
	return c.tokenizer.Tokenize(text)
}

// Build embeds the corpus and overwrites the persisted cache. Returns the passage count.
func (c *Client) Build(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("build", start, err) }()

	cache, err := c.corpus.Build(ctx)
	if err != nil {
		return 0, fmt.Errorf("build: %w", err)
	}
	return cache.Len(), nil
}

// Ensure loads the persisted cache, building it when absent. Returns the passage count.
func (c *Client) Ensure(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ensure", start, err) }()

	cache, err := c.corpus.Ensure(ctx)
	if err != nil {
		return 0, fmt.Errorf("ensure: %w", err)
	}
	return cache.Len(), nil
}
