// Package hashing is an offline embedding provider: signed feature hashing of word
// unigrams and bigrams into a fixed-size, L2-normalized vector.
//
// It captures lexical overlap only. Use it for local runs, tests and demos without an
// embedding API; configure the openai provider for semantic similarity.
package hashing

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

const (
	unigramWeight = 1.0
	bigramWeight  = 0.5
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Embedder hashes text features into Dimensions buckets.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a hashing embedder. dimensions must be positive.
func NewEmbedder(dimensions int) *Embedder {
	return &Embedder{dimensions: dimensions}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements domain.Embedder. Text without words maps to the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	vec := make([]float32, e.dimensions)

	acc := make([]float64, e.dimensions)
	for i, w := range words {
		e.add(acc, w, unigramWeight)
		if i > 0 {
			e.add(acc, words[i-1]+" "+w, bigramWeight)
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	if sum > 0 {
		n := math.Sqrt(sum)
		for i, v := range acc {
			vec[i] = float32(v / n)
		}
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: len(words),
		TotalTokens:  len(words),
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, e, texts)
}

// add hashes a feature to a bucket; the top hash bit picks the sign so collisions cancel out on average.
func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(e.dimensions)
	if h>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}
