// Package embeddings turns email bodies into vectors and keeps them
// searchable in Qdrant.
package embeddings

import (
	"context"
	"fmt"
)

// EmbeddingClient is the slice of the OpenAI client the embedder needs.
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder frames texts for asymmetric retrieval before embedding them.
// Queries and passages get distinct instruction prefixes so a search
// query and a stored email land in comparable regions of the space.
type Embedder struct {
	client        EmbeddingClient
	queryPrefix   string
	passagePrefix string
}

// NewEmbedder creates an embedder with the given framing prefixes.
// Empty prefixes disable framing for that side.
func NewEmbedder(client EmbeddingClient, queryPrefix, passagePrefix string) *Embedder {
	return &Embedder{
		client:        client,
		queryPrefix:   queryPrefix,
		passagePrefix: passagePrefix,
	}
}

// FrameQuery returns the text as it will be sent for query embedding.
func (e *Embedder) FrameQuery(text string) string {
	return e.queryPrefix + text
}

// FramePassage returns the text as it will be sent for passage embedding.
func (e *Embedder) FramePassage(text string) string {
	return e.passagePrefix + text
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.client.CreateEmbeddings(ctx, []string{e.FrameQuery(text)})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// EmbedPassages embeds stored email bodies, one vector per input, in
// input order.
func (e *Embedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	framed := make([]string, len(texts))
	for i, text := range texts {
		framed[i] = e.FramePassage(text)
	}

	vectors, err := e.client.CreateEmbeddings(ctx, framed)
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d passage embeddings, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}
