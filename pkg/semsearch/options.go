package semsearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	corpusPath string
	cachePath  string

	redisAddr     string
	redisPassword string
	redisKey      string

	embedder   Embedder
	dimensions int
	tokenizer  Tokenizer
	staleCheck bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCorpusFile sets the line-per-passage source file. Required.
func WithCorpusFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusPath = path
	})
}

// WithCacheFile persists the corpus embeddings in a local file.
// Default: the corpus path with a ".emb" suffix.
func WithCacheFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cachePath = path
	})
}

// WithRedisCache persists the corpus embeddings under key in Redis or Valkey,
// shared by every client pointing at the same key. Overrides WithCacheFile.
func WithRedisCache(addr, password, key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddr = addr
		c.redisPassword = password
		c.redisKey = key
	})
}

// WithEmbedder sets the text embedding provider.
// Default: offline feature hashing (see WithHashingDimensions).
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithHashingDimensions sets the vector size of the default embedder. Default: 384.
func WithHashingDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithTokenizer sets the display tokenizer. Default: GPT-2 byte-pair encoding.
func WithTokenizer(t Tokenizer) Option {
	return optionFunc(func(c *clientConfig) {
		c.tokenizer = t
	})
}

// WithRebuildOnStale rebuilds the cache when the corpus file changed since it was built.
func WithRebuildOnStale() Option {
	return optionFunc(func(c *clientConfig) {
		c.staleCheck = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
