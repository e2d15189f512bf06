// Package ranking scores corpus passages against a query vector by cosine similarity.
//
// TopK is a linear scan over every corpus vector with no index structure. That is the
// intended ceiling for a small static corpus; a growing corpus needs an ANN index instead.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/corpus"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

type scored struct {
	idx   int
	score float64
}

// TopK returns the k corpus passages most similar to query, best first.
// Equal scores keep corpus order. When k exceeds the corpus size every passage is returned.
func TopK(query []float32, cache corpus.Cache, k int) ([]result.Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k=%d: %w", k, domain.ErrInvalidK)
	}
	if err := cache.Validate(); err != nil {
		return nil, err
	}

	qNorm := norm(query)
	scores := make([]scored, len(cache.Embeddings))
	for i, emb := range cache.Embeddings {
		if len(emb) != len(query) {
			return nil, fmt.Errorf("query has %d dims, corpus entry %d has %d: %w",
				len(query), i, len(emb), domain.ErrDimensionMismatch)
		}
		scores[i] = scored{idx: i, score: cosine(query, emb, qNorm)}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if k > len(scores) {
		k = len(scores)
	}

	out := make([]result.Scored, k)
	for i := range k {
		s := scores[i]
		out[i] = result.New(cache.Lines[s.idx], s.score)
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero norm.
// a and b must have equal length.
func Cosine(a, b []float32) float64 {
	return cosine(a, b, norm(a))
}

// cosine scores zero-norm vectors as 0 so an all-zero embedding ranks as unrelated instead of NaN.
func cosine(q, e []float32, qNorm float64) float64 {
	eNorm := norm(e)
	if qNorm == 0 || eNorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(e[i])
	}
	return dot / (qNorm * eNorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
