package result

// Scored is a single ranked corpus passage.
type Scored struct {
	text  string
	score float64
}

// New creates a ranked result.
func New(text string, score float64) Scored {
	return Scored{text: text, score: score}
}

// Text returns the corpus passage.
func (r Scored) Text() string { return r.text }

// Score returns the cosine similarity in [-1, 1].
func (r Scored) Score() float64 { return r.score }
