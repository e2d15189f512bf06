package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/usecase/ranking"
)

// Response is the outcome of one query.
type Response struct {
	Query   string
	Tokens  []string
	Results []result.Scored
}

// Service answers free-text queries against the corpus.
type Service struct {
	corpus CorpusProvider
	embed  domain.Embedder
	tokens domain.Tokenizer
	maxK   int
	logger *zap.Logger
}

// New creates a search service. maxK caps the requested result count; 0 disables the cap.
func New(
	corpus CorpusProvider, embed domain.Embedder, tokens domain.Tokenizer,
	maxK int, logger *zap.Logger,
) *Service {
	return &Service{corpus: corpus, embed: embed, tokens: tokens, maxK: maxK, logger: logger}
}

// Query tokenizes text for display, embeds it, and ranks the corpus by cosine similarity.
func (s *Service) Query(ctx context.Context, text string, k int) (Response, error) {
	start := time.Now()
	log := logger.FromContext(ctx, s.logger)

	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, domain.ErrEmptyQuery
	}
	if k <= 0 {
		return Response{}, fmt.Errorf("k=%d: %w", k, domain.ErrInvalidK)
	}
	if s.maxK > 0 && k > s.maxK {
		k = s.maxK
	}

	log.Info("Received query", zap.String("query", text), zap.Int("k", k))

	tokens := s.tokens.Tokenize(text)
	log.Debug("Tokenized query", zap.Strings("tokens", tokens), zap.Int("num_tokens", len(tokens)))

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}
	log.Debug("Embedded query", zap.Int("dimensions", len(emb.Embedding)))

	cache, err := s.corpus.Ensure(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("ensure corpus: %w", err)
	}

	results, err := ranking.TopK(emb.Embedding, cache, k)
	if err != nil {
		return Response{}, fmt.Errorf("rank corpus: %w", err)
	}

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	log.Info("Found similar passages", zap.Int("count", len(results)))

	return Response{Query: text, Tokens: tokens, Results: results}, nil
}
