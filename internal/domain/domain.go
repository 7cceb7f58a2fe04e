package domain

import "context"

// Record is a single question/answer pair from the policy corpus, tagged
// with the section it was extracted from. Records are immutable once loaded
// and identified by their position in the corpus.
type Record struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Section  string `json:"section"`
}

// QueryResult is one ranked retrieval hit. Rank is 1-based and follows
// ascending Distance; ties keep corpus order.
type QueryResult struct {
	Question string
	Answer   string
	Section  string
	Distance float32
	Rank     int
}

// Embedder converts free text into fixed-length numeric vectors.
// Encode preserves input order and is deterministic for a fixed model.
type Embedder interface {
	Name() string
	Dimension() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}
