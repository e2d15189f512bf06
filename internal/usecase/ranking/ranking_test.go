package ranking

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/corpus"
)

func catCorpus(t *testing.T) corpus.Cache {
	t.Helper()
	c, err := corpus.New(
		[]string{"the cat sat", "a dog ran", "the cat slept"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0, 0.1}},
		"",
	)
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}
	return c
}

func TestTopK_CatScenario(t *testing.T) {
	got, err := TopK([]float32{1, 0, 0}, catCorpus(t), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text() != "the cat sat" || math.Abs(got[0].Score()-1.0) > 1e-6 {
		t.Errorf("first result = %q %.4f, want \"the cat sat\" 1.0", got[0].Text(), got[0].Score())
	}
	want := 0.9 / math.Sqrt(0.82)
	if got[1].Text() != "the cat slept" || math.Abs(got[1].Score()-want) > 1e-6 {
		t.Errorf("second result = %q %.4f, want \"the cat slept\" %.4f", got[1].Text(), got[1].Score(), want)
	}
	if math.Abs(got[1].Score()-0.994) > 0.001 {
		t.Errorf("expected score ~0.994, got %.4f", got[1].Score())
	}
}

func TestTopK_SortedAndSized(t *testing.T) {
	c := catCorpus(t)
	queries := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.3, 0.3, 0.9}, {-1, 0.5, 0}}

	for _, q := range queries {
		for k := 1; k <= 5; k++ {
			got, err := TopK(q, c, k)
			if err != nil {
				t.Fatalf("TopK(%v, %d): %v", q, k, err)
			}
			if len(got) != min(k, c.Len()) {
				t.Errorf("TopK(%v, %d) returned %d results", q, k, len(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].Score() > got[i-1].Score() {
					t.Errorf("TopK(%v, %d) not descending at %d: %v", q, k, i, got)
				}
			}
		}
	}
}

func TestTopK_Deterministic(t *testing.T) {
	c := catCorpus(t)
	q := []float32{0.5, 0.5, 0.1}

	first, err := TopK(q, c, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := TopK(q, c, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical output, got %v vs %v", first, second)
	}
}

func TestTopK_TiesKeepCorpusOrder(t *testing.T) {
	c, err := corpus.New(
		[]string{"low", "twin-a", "mid", "twin-b", "twin-c"},
		[][]float32{{0, 1}, {1, 1}, {1, 3}, {1, 1}, {1, 1}},
		"",
	)
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}

	got, err := TopK([]float32{1, 1}, c, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := make([]string, len(got))
	for i, r := range got {
		order[i] = r.Text()
	}
	want := []string{"twin-a", "twin-b", "twin-c", "mid", "low"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestTopK_KLargerThanCorpus(t *testing.T) {
	got, err := TopK([]float32{1, 0, 0}, catCorpus(t), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected full corpus, got %d", len(got))
	}
	if got[2].Text() != "a dog ran" {
		t.Errorf("expected orthogonal entry last, got %q", got[2].Text())
	}
}

func TestTopK_InvalidK(t *testing.T) {
	for _, k := range []int{0, -1} {
		_, err := TopK([]float32{1, 0, 0}, catCorpus(t), k)
		if !errors.Is(err, domain.ErrInvalidK) {
			t.Errorf("k=%d: expected ErrInvalidK, got %v", k, err)
		}
	}
}

func TestTopK_DimensionMismatch(t *testing.T) {
	_, err := TopK([]float32{1, 0}, catCorpus(t), 2)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestTopK_MisalignedCache(t *testing.T) {
	c := corpus.Cache{
		Lines:      []string{"a"},
		Embeddings: [][]float32{{0, 1}, {1, 0}},
	}
	_, err := TopK([]float32{1, 0}, c, 2)
	if !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Fatalf("expected ErrCacheCorrupt, got %v", err)
	}
}

func TestTopK_EmptyCorpus(t *testing.T) {
	got, err := TopK([]float32{1, 0}, corpus.Cache{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestTopK_ZeroNormScoresZero(t *testing.T) {
	c, err := corpus.New(
		[]string{"zero", "neg", "pos"},
		[][]float32{{0, 0}, {-1, 0}, {1, 0}},
		"",
	)
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}

	got, err := TopK([]float32{1, 0}, c, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Text() != "pos" || got[1].Text() != "zero" || got[2].Text() != "neg" {
		t.Errorf("unexpected order: %v", got)
	}
	if got[1].Score() != 0 {
		t.Errorf("expected zero-norm score 0, got %f", got[1].Score())
	}

	zq, err := TopK([]float32{0, 0}, c, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range zq {
		if r.Score() != 0 || math.IsNaN(r.Score()) {
			t.Errorf("expected 0 for zero query, got %f", r.Score())
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Cosine(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
