package search

import (
	"context"

	domcorpus "github.com/kailas-cloud/semsearch/internal/domain/corpus"
)

// CorpusProvider returns the embedded corpus, building it on first use.
type CorpusProvider interface {
	Ensure(ctx context.Context) (domcorpus.Cache, error)
}
