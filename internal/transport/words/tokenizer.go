// Package words is a display tokenizer: runs of letters/digits become
// one token, every other non-space rune stands alone.
package words

import (
	"regexp"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]`)

// Tokenizer implements domain.Tokenizer.
type Tokenizer struct{}

// New creates a word tokenizer.
func New() *Tokenizer { return &Tokenizer{} }

// Tokenize splits text into words and punctuation.
func (Tokenizer) Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}
