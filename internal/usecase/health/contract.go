package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusChecker reports whether the corpus cache is persisted.
type CorpusChecker interface {
	Exists(ctx context.Context) (bool, error)
}
