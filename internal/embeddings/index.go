package embeddings

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"stylomail/internal/models"
)

// upsertBatchSize bounds points per Qdrant upsert call.
const upsertBatchSize = 100

// IndexEntry is one email ready to be written to the vector index.
// The point id is the email's store-assigned internal id, so re-indexing
// the same email overwrites its point instead of duplicating it.
type IndexEntry struct {
	ID        int64
	MessageID string
	Sender    string
	Content   string
	Vector    []float32
}

// Index is the Qdrant-backed vector index over email bodies.
type Index struct {
	client     *qdrant.Client
	collection string
	dim        uint64
}

// NewIndex connects to Qdrant. The collection is created on first
// EnsureCollection call, not here.
func NewIndex(host string, port int, apiKey string, useTLS bool, collection string, dim int) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &Index{
		client:     client,
		collection: collection,
		dim:        uint64(dim),
	}, nil
}

// EnsureCollection creates the email collection if it does not exist.
func (idx *Index) EnsureCollection(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	fmt.Printf("[VECTOR_INDEX] Creating collection %s (dim=%d)\n", idx.collection, idx.dim)
	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     idx.dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes a single entry. Writing an existing id replaces its
// vector and payload.
func (idx *Index) Upsert(ctx context.Context, entry IndexEntry) error {
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{toPoint(entry)},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point %d: %w", entry.ID, err)
	}
	return nil
}

// UpsertBatch writes entries in chunks, each chunk committed
// independently. A failed chunk does not abort the rest; the message
// ids of entries in failed chunks come back for the caller to report.
func (idx *Index) UpsertBatch(ctx context.Context, entries []IndexEntry) []string {
	var failed []string

	for i := 0; i < len(entries); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]

		points := make([]*qdrant.PointStruct, len(chunk))
		for j, entry := range chunk {
			points[j] = toPoint(entry)
		}

		_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: idx.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			fmt.Printf("[VECTOR_INDEX] ERROR: Failed to upsert chunk %d-%d: %v\n", i, end, err)
			for _, entry := range chunk {
				failed = append(failed, entry.MessageID)
			}
		}
	}

	return failed
}

// Delete removes the point for the given internal email id.
func (idx *Index) Delete(ctx context.Context, id int64) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDNum(uint64(id))),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point %d: %w", id, err)
	}
	return nil
}

// Search returns the nearest stored emails to the query vector,
// ascending by distance. A non-empty sender restricts results to that
// sender's mail via an exact payload filter. An empty index yields an
// empty slice, not an error.
func (idx *Index) Search(ctx context.Context, vector []float32, limit int, sender string) ([]models.SimilarEmail, error) {
	query := &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if sender != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("sender", sender),
			},
		}
	}

	points, err := idx.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	results := make([]models.SimilarEmail, 0, len(points))
	for _, point := range points {
		results = append(results, models.SimilarEmail{
			Key:      point.Payload["message_id"].GetStringValue(),
			Content:  point.Payload["content"].GetStringValue(),
			Sender:   point.Payload["sender"].GetStringValue(),
			Distance: scoreToDistance(point.Score),
		})
	}
	return results, nil
}

func toPoint(entry IndexEntry) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(entry.ID)),
		Vectors: qdrant.NewVectors(entry.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"message_id": entry.MessageID,
			"sender":     entry.Sender,
			"content":    entry.Content,
		}),
	}
}

// scoreToDistance converts a cosine similarity score to a distance so
// callers can rank ascending like the rest of the retrieval code.
func scoreToDistance(score float32) float64 {
	return 1 - float64(score)
}
