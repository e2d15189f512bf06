package semsearch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockEmbedder struct {
	fn    func(ctx context.Context, text string) (EmbeddingResult, error)
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	m.calls++
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	m.batchCalls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		r, err := m.fn(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, err
		}
		out[i] = r.Embedding
	}
	return BatchEmbeddingResult{Embeddings: out}, nil
}

type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

// catVectors embeds the three scenario passages and their query.
func catVectors(_ context.Context, text string) (EmbeddingResult, error) {
	switch text {
	case "the cat sat", "cat":
		return EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
	case "the dog ran":
		return EmbeddingResult{Embedding: []float32{0, 1, 0}}, nil
	case "the cat slept":
		return EmbeddingResult{Embedding: []float32{0.9, 0.1, 0}}, nil
	}
	return EmbeddingResult{}, errors.New("unexpected text " + text)
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte("the cat sat\nthe dog ran\nthe cat slept\n"), 0o600); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestNew_NoCorpus(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no corpus file provided")
	}
}

func TestNew_InvalidHashingDimensions(t *testing.T) {
	src := writeCorpus(t)
	for _, dim := range []int{0, -1} {
		c, err := New(context.Background(), WithCorpusFile(src), WithHashingDimensions(dim))
		if err == nil {
			c.Close()
			t.Errorf("dimensions=%d: expected error", dim)
		}
	}
}

func TestNew_CustomEmbedderIgnoresHashingDimensions(t *testing.T) {
	c, err := New(context.Background(),
		WithCorpusFile(writeCorpus(t)),
		WithEmbedder(&mockEmbedder{fn: catVectors}),
		WithHashingDimensions(0),
		WithTokenizer(fieldsTokenizer{}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if _, err := c.Search(context.Background(), "cat", 1); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestClient_Search(t *testing.T) {
	emb := &mockEmbedder{fn: catVectors}
	c, err := New(context.Background(),
		WithCorpusFile(writeCorpus(t)),
		WithEmbedder(emb),
		WithTokenizer(fieldsTokenizer{}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	results, err := c.Search(context.Background(), "cat", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].Text != "the cat sat" || results[1].Text != "the cat slept" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Score != 1 {
		t.Errorf("expected top score 1, got %f", results[0].Score)
	}
}

func TestClient_CachePersistsAcrossClients(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	cache := filepath.Join(t.TempDir(), "cache.bin")

	first, err := New(ctx, WithCorpusFile(corpus), WithCacheFile(cache),
		WithEmbedder(&mockEmbedder{fn: catVectors}), WithTokenizer(fieldsTokenizer{}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if n, err := first.Ensure(ctx); err != nil || n != 3 {
		t.Fatalf("ensure: n=%d err=%v", n, err)
	}

	emb := &mockEmbedder{fn: catVectors}
	second, err := New(ctx, WithCorpusFile(corpus), WithCacheFile(cache),
		WithEmbedder(emb), WithTokenizer(fieldsTokenizer{}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := second.Search(ctx, "cat", 1); err != nil {
		t.Fatalf("search: %v", err)
	}
	if emb.calls != 1 {
		t.Errorf("expected only the query to be embedded, got %d calls", emb.calls)
	}
}

func TestClient_BatchEmbedderUsedForBuild(t *testing.T) {
	emb := &mockBatchEmbedder{mockEmbedder: mockEmbedder{fn: catVectors}}
	c, err := New(context.Background(),
		WithCorpusFile(writeCorpus(t)),
		WithCacheFile(filepath.Join(t.TempDir(), "cache.bin")),
		WithEmbedder(emb),
		WithTokenizer(fieldsTokenizer{}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	n, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if n != 3 || emb.batchCalls != 1 || emb.calls != 0 {
		t.Errorf("expected one batch call for 3 passages, got n=%d batch=%d single=%d", n, emb.batchCalls, emb.calls)
	}
}

func TestClient_QueryTokens(t *testing.T) {
	c, err := New(context.Background(),
		WithCorpusFile(writeCorpus(t)),
		WithCacheFile(filepath.Join(t.TempDir(), "cache.bin")),
		WithTokenizer(fieldsTokenizer{}),
		WithHashingDimensions(64),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	resp, err := c.Query(context.Background(), "sleeping cat", 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(resp.Tokens) != 2 || len(resp.Results) != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got := c.Tokenize("a b c"); len(got) != 3 {
		t.Errorf("expected 3 tokens, got %v", got)
	}
}

func TestClient_Errors(t *testing.T) {
	c, err := New(context.Background(),
		WithCorpusFile(filepath.Join(t.TempDir(), "missing.txt")),
		WithTokenizer(fieldsTokenizer{}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := c.Search(context.Background(), "cat", 3); !errors.Is(err, ErrCorpusUnavailable) {
		t.Errorf("expected ErrCorpusUnavailable, got %v", err)
	}
	if _, err := c.Search(context.Background(), " ", 3); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := c.Search(context.Background(), "cat", 0); !errors.Is(err, ErrInvalidK) {
		t.Errorf("expected ErrInvalidK, got %v", err)
	}
}

func TestClient_EmbedderError(t *testing.T) {
	boom := errors.New("boom")
	c, err := New(context.Background(),
		WithCorpusFile(writeCorpus(t)),
		WithEmbedder(&mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
			return EmbeddingResult{}, boom
		}}),
		WithTokenizer(fieldsTokenizer{}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := c.Search(context.Background(), "cat", 3); !errors.Is(err, boom) {
		t.Errorf("expected embedder error, got %v", err)
	}
}

func TestClient_ObservesOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(context.Background(),
		WithCorpusFile(writeCorpus(t)),
		WithCacheFile(filepath.Join(t.TempDir(), "cache.bin")),
		WithEmbedder(&mockEmbedder{fn: catVectors}),
		WithTokenizer(fieldsTokenizer{}),
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
		WithPrometheus(reg),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, _ = c.Search(context.Background(), "cat", 1)
	_, _ = c.Search(context.Background(), "", 1)

	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("query", "ok")); got != 1 {
		t.Errorf("expected 1 ok query, got %f", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("query", "error")); got != 1 {
		t.Errorf("expected 1 failed query, got %f", got)
	}
}

func TestRegisterOrReuse(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	second, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if first.operations != second.operations {
		t.Error("expected the existing collector to be reused")
	}
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.observe("noop", time.Now(), nil)
}
