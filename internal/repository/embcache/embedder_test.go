package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	var stored []byte
	var storedTTL time.Duration
	ms.setFn = func(_ context.Context, _ string, value []byte, ttl time.Duration) error {
		stored, storedTTL = value, ttl
		return nil
	}

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(stored) != 12 {
		t.Errorf("expected 12 cached bytes, got %d", len(stored))
	}
	if storedTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", storedTTL)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	cached := vectorToBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return cached, nil }

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Errorf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Errorf("expected no inner calls on hit, got %d", inner.calls)
	}
}

func TestEmbed_StoreErrorDegradesToMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return nil, errors.New("conn reset") }
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error { return errors.New("conn reset") }

	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("store errors must not fail the query: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestEmbed_CorruptEntryDegradesToMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected fallback to inner, got %d calls", inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	innerErr := errors.New("provider down")
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{err: innerErr})

	_, err := ce.Embed(context.Background(), "test text")
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestEmbed_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ms := &mockKVStore{}
	ce := New(&mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}},
		ms, "m", 0, counter, zap.NewNop())

	_, _ = ce.Embed(context.Background(), "q")
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return vectorToBytes([]float32{1}), nil }
	_, _ = ce.Embed(context.Background(), "q")

	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("expected 1 miss, got %f", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("expected 1 hit, got %f", v)
	}
}

func TestCacheKey_IncludesModel(t *testing.T) {
	a := New(nil, nil, "model-a", 0, nil, zap.NewNop())
	b := New(nil, nil, "model-b", 0, nil, zap.NewNop())

	if a.cacheKey("same") == b.cacheKey("same") {
		t.Error("expected model to change the cache key")
	}
	if a.cacheKey("x") != a.cacheKey("x") {
		t.Error("expected stable cache key")
	}
}

func TestBatchEmbed_BypassesCache(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		t.Error("batch embed must not read the cache")
		return nil, nil
	}

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || inner.calls != 2 {
		t.Errorf("expected 2 embeddings via fallback, got %d (calls %d)", len(res.Embeddings), inner.calls)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1, 3.5}
	got, err := bytesToVector(vectorToBytes(vec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vec[%d] = %f, want %f", i, got[i], vec[i])
		}
	}
	if _, err := bytesToVector([]byte{1}); err == nil {
		t.Error("expected error for odd length")
	}
}
