package embeddings

import (
	"context"

	"stylomail/internal/models"
)

// vectorIndex is the slice of the index the searcher needs.
type vectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int, sender string) ([]models.SimilarEmail, error)
}

// Searcher combines query framing with index lookup.
type Searcher struct {
	embedder *Embedder
	index    vectorIndex
}

// NewSearcher wires an embedder to a vector index.
func NewSearcher(embedder *Embedder, index vectorIndex) *Searcher {
	return &Searcher{embedder: embedder, index: index}
}

// SimilarTo embeds the text as a query and returns the nearest stored
// emails, ascending by distance. A non-empty sender restricts results
// to mail written by that sender.
func (s *Searcher) SimilarTo(ctx context.Context, text, sender string, limit int) ([]models.SimilarEmail, error) {
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, limit, sender)
}
