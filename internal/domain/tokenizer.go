package domain

// Tokenizer splits text into display tokens. Tokens never take part in search.
type Tokenizer interface {
	Tokenize(text string) []string
}
