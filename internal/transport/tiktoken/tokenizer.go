// Package tiktoken tokenizes text with OpenAI's byte-pair encodings. The default
// r50k_base encoding is the GPT-2 vocabulary.
package tiktoken

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the GPT-2 vocabulary.
const DefaultEncoding = "r50k_base"

var loaderOnce sync.Once

// byte-level BPE renders whitespace with printable stand-ins.
var whitespace = strings.NewReplacer(" ", "Ġ", "\n", "Ċ", "\t", "ĉ")

// Tokenizer implements domain.Tokenizer.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads an encoding from the ranks embedded in the binary; no network access.
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Tokenize returns one display string per token, with spaces shown as "Ġ".
// Tokens that split a multi-byte character are rendered with U+FFFD.
func (t *Tokenizer) Tokenize(text string) []string {
	ids := t.enc.Encode(text, nil, nil)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		piece := strings.ToValidUTF8(t.enc.Decode([]int{id}), "�")
		tokens[i] = whitespace.Replace(piece)
	}
	return tokens
}
