// Package corpuscache persists the embedded corpus as a single binary blob, either in a
// local file or under one key in Redis/Valkey.
//
// Blob layout (all integers little-endian uint32):
//
//	"SMC1" | hashLen | hash | n | n × (len | utf-8 line) | n × (dim | dim × float32)
package corpuscache

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/corpus"
)

var magic = [4]byte{'S', 'M', 'C', '1'}

// Encode serializes a cache. Float32 values are stored bit-exact.
func Encode(c corpus.Cache) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("encode corpus cache: %w", err)
	}

	size := len(magic) + 4 + len(c.SourceHash) + 4
	for i, line := range c.Lines {
		size += 4 + len(line) + 4 + 4*len(c.Embeddings[i])
	}

	buf := make([]byte, 0, size)
	buf = append(buf, magic[:]...)
	buf = appendString(buf, c.SourceHash)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Lines)))
	for _, line := range c.Lines {
		buf = appendString(buf, line)
	}
	for _, vec := range c.Embeddings {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(vec)))
		for _, f := range vec {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf, nil
}

// Decode parses a blob written by Encode. Any structural problem yields domain.ErrCacheCorrupt.
func Decode(data []byte) (corpus.Cache, error) {
	r := reader{data: data}

	var m [4]byte
	copy(m[:], r.next(4))
	if r.err != nil || m != magic {
		return corpus.Cache{}, fmt.Errorf("bad header: %w", domain.ErrCacheCorrupt)
	}

	hash := r.str()
	n := r.count(4) // every line costs at least its length prefix

	lines := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		line := r.str()
		if r.err == nil && !utf8.ValidString(line) {
			r.fail(fmt.Sprintf("line %d is not valid utf-8", i))
		}
		lines = append(lines, line)
	}

	embeddings := make([][]float32, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		dim := r.count(4)
		raw := r.next(4 * dim)
		if r.err != nil {
			break
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*j:]))
		}
		embeddings = append(embeddings, vec)
	}

	if r.err == nil && r.off != len(data) {
		r.fail(fmt.Sprintf("%d trailing bytes", len(data)-r.off))
	}
	if r.err != nil {
		return corpus.Cache{}, r.err
	}

	c, err := corpus.New(lines, embeddings, hash)
	if err != nil {
		return corpus.Cache{}, fmt.Errorf("decode corpus cache: %w", err)
	}
	return c, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// reader is a bounds-checked cursor; the first failure sticks.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(msg string) {
	if r.err == nil {
		r.err = fmt.Errorf("%s at offset %d: %w", msg, r.off, domain.ErrCacheCorrupt)
	}
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.off {
		r.fail("truncated payload")
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// count reads a length and rejects values that cannot fit in the remaining bytes.
func (r *reader) count(unit int) int {
	b := r.next(4)
	if r.err != nil {
		return 0
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > (len(r.data)-r.off)/unit {
		r.fail(fmt.Sprintf("length %d exceeds payload", n))
		return 0
	}
	return n
}

func (r *reader) str() string {
	n := r.count(1)
	return string(r.next(n))
}
