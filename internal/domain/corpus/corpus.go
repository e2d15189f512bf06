// Package corpus holds the static passage collection and its precomputed embeddings.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// maxLineBytes bounds a single corpus passage.
const maxLineBytes = 1 << 20

// Entry is a single corpus passage with its embedding.
type Entry struct {
	Text      string
	Embedding []float32
}

// Cache is the index-aligned corpus: Lines[i] was embedded as Embeddings[i].
// It is never mutated after it is built.
type Cache struct {
	Lines      []string
	Embeddings [][]float32
	// SourceHash is the hex SHA-256 of the source file the cache was built from.
	// Empty for caches written without one.
	SourceHash string
}

// New assembles a cache and checks alignment.
func New(lines []string, embeddings [][]float32, sourceHash string) (Cache, error) {
	c := Cache{Lines: lines, Embeddings: embeddings, SourceHash: sourceHash}
	if err := c.Validate(); err != nil {
		return Cache{}, err
	}
	return c, nil
}

// Validate reports ErrCacheCorrupt when lines and embeddings are not index-aligned.
func (c Cache) Validate() error {
	if len(c.Lines) != len(c.Embeddings) {
		return fmt.Errorf("%d lines vs %d embeddings: %w",
			len(c.Lines), len(c.Embeddings), domain.ErrCacheCorrupt)
	}
	for i, e := range c.Embeddings {
		if e == nil {
			return fmt.Errorf("embedding %d is missing: %w", i, domain.ErrCacheCorrupt)
		}
	}
	return nil
}

// Len returns the number of entries.
func (c Cache) Len() int { return len(c.Lines) }

// Entry returns the i-th passage and its embedding.
func (c Cache) Entry(i int) Entry {
	return Entry{Text: c.Lines[i], Embedding: c.Embeddings[i]}
}

// Dimension returns the embedding length of the first entry, or 0 for an empty cache.
func (c Cache) Dimension() int {
	if len(c.Embeddings) == 0 {
		return 0
	}
	return len(c.Embeddings[0])
}

// ReadLines reads one passage per line. Lines are trimmed; blank lines are skipped;
// duplicates are kept in source order.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	return lines, nil
}
