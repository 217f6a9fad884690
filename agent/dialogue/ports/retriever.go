package ports

import "context"

// Snippet is a retrieved reference chunk with provenance.
type Snippet struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Retriever serves reference material for question and analysis turns. An
// empty result is valid, not an error.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
}
