package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingClient struct {
	lastInput []string
	vectors   [][]float32
	err       error
}

func (f *fakeEmbeddingClient) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.lastInput = texts
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func TestEmbedQuery_AppliesQueryPrefix(t *testing.T) {
	client := &fakeEmbeddingClient{}
	embedder := NewEmbedder(client, "query: ", "passage: ")

	vector, err := embedder.EmbedQuery(context.Background(), "who sent the invoice?")

	require.NoError(t, err)
	require.Len(t, client.lastInput, 1)
	assert.Equal(t, "query: who sent the invoice?", client.lastInput[0])
	assert.Equal(t, []float32{0, 1}, vector)
}

func TestEmbedPassages_AppliesPassagePrefix(t *testing.T) {
	client := &fakeEmbeddingClient{}
	embedder := NewEmbedder(client, "query: ", "passage: ")

	vectors, err := embedder.EmbedPassages(context.Background(), []string{"first body", "second body"})

	require.NoError(t, err)
	assert.Equal(t, []string{"passage: first body", "passage: second body"}, client.lastInput)
	assert.Len(t, vectors, 2)
}

func TestEmbedPassages_EmptyInputSkipsAPI(t *testing.T) {
	client := &fakeEmbeddingClient{err: errors.New("should not be called")}
	embedder := NewEmbedder(client, "", "")

	vectors, err := embedder.EmbedPassages(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Nil(t, client.lastInput)
}

func TestEmbedQuery_SameTextDifferentFraming(t *testing.T) {
	embedder := NewEmbedder(nil, "query: ", "passage: ")

	assert.NotEqual(t, embedder.FrameQuery("hello"), embedder.FramePassage("hello"))
}

func TestEmbedPassages_CountMismatch(t *testing.T) {
	client := &fakeEmbeddingClient{vectors: [][]float32{{1}}}
	embedder := NewEmbedder(client, "", "")

	_, err := embedder.EmbedPassages(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestScoreToDistance(t *testing.T) {
	assert.InDelta(t, 0.0, scoreToDistance(1.0), 1e-9)
	assert.InDelta(t, 0.75, scoreToDistance(0.25), 1e-9)
}
