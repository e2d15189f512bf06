package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheBackendFile = "file"
	CacheBackendKV   = "kv"
)

// Embedding providers.
const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
)

// Tokenizer kinds.
const (
	TokenizerGPT2  = "gpt2"
	TokenizerWords = "words"
)

// Config holds the semsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig locates the source corpus and its embedding cache.
type CorpusConfig struct {
	SourcePath   string `yaml:"source_path"`
	CacheBackend string `yaml:"cache_backend"` // file, kv (default: file)
	CachePath    string `yaml:"cache_path"`
	CacheKey     string `yaml:"cache_key"`
	// StaleCheck records the source file hash in the cache and warns on mismatch.
	StaleCheck bool `yaml:"stale_check"`
	// RebuildOnStale rebuilds instead of warning. Requires StaleCheck.
	RebuildOnStale bool `yaml:"rebuild_on_stale"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	TopK    int `yaml:"top_k"`
	MaxTopK int `yaml:"max_top_k"`
	// QueryCache caches query embeddings in the database. Requires database.addrs.
	QueryCache bool `yaml:"query_cache"`
	// QueryCacheTTLSec bounds cached query embeddings. 0 keeps them forever.
	QueryCacheTTLSec int `yaml:"query_cache_ttl_sec"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // hashing, openai (default: openai with api_key, else hashing)
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	BatchSize  int    `yaml:"batch_size"`
}

// TokenizerConfig selects the display tokenizer.
type TokenizerConfig struct {
	Kind     string `yaml:"kind"`     // gpt2, words (default: gpt2)
	Encoding string `yaml:"encoding"` // BPE encoding for gpt2 (default: r50k_base)
}

// DatabaseConfig holds Redis/Valkey connection settings. Optional.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates a YAML config file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.SourcePath == "" {
		c.Corpus.SourcePath = filepath.Join("data", "corpus.txt")
	}
	if c.Corpus.CacheBackend == "" {
		c.Corpus.CacheBackend = CacheBackendFile
	}
	if c.Corpus.CachePath == "" {
		c.Corpus.CachePath = filepath.Join("data", "corpus_embeddings.bin")
	}
	if c.Corpus.CacheKey == "" {
		c.Corpus.CacheKey = "semsearch:corpus"
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 3
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 50
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderHashing
		if c.Embedding.APIKey != "" {
			c.Embedding.Provider = ProviderOpenAI
		}
	}
	if c.Embedding.Dimensions <= 0 && c.Embedding.Provider == ProviderHashing {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Tokenizer.Kind == "" {
		c.Tokenizer.Kind = TokenizerGPT2
	}
	if c.Tokenizer.Encoding == "" {
		c.Tokenizer.Encoding = "r50k_base"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Corpus.CacheBackend {
	case CacheBackendFile:
	case CacheBackendKV:
		if !c.Database.Enabled() {
			return fmt.Errorf("corpus.cache_backend %q requires database.addrs", CacheBackendKV)
		}
	default:
		return fmt.Errorf("corpus.cache_backend must be %q or %q, got %q",
			CacheBackendFile, CacheBackendKV, c.Corpus.CacheBackend)
	}
	if c.Corpus.RebuildOnStale && !c.Corpus.StaleCheck {
		return fmt.Errorf("corpus.rebuild_on_stale requires corpus.stale_check")
	}

	if c.Search.TopK > c.Search.MaxTopK {
		return fmt.Errorf("search.top_k (%d) exceeds search.max_top_k (%d)", c.Search.TopK, c.Search.MaxTopK)
	}
	if c.Search.QueryCache && !c.Database.Enabled() {
		return fmt.Errorf("search.query_cache requires database.addrs")
	}
	if c.Search.QueryCacheTTLSec < 0 {
		return fmt.Errorf("search.query_cache_ttl_sec must not be negative, got %d", c.Search.QueryCacheTTLSec)
	}

	switch c.Embedding.Provider {
	case ProviderHashing:
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions must be positive for %q", ProviderHashing)
		}
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for %q", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderHashing, ProviderOpenAI, c.Embedding.Provider)
	}

	switch c.Tokenizer.Kind {
	case TokenizerGPT2, TokenizerWords:
	default:
		return fmt.Errorf("tokenizer.kind must be %q or %q, got %q",
			TokenizerGPT2, TokenizerWords, c.Tokenizer.Kind)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
