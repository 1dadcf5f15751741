// Package stylometry derives a writer's stylistic fingerprint from
// their outgoing mail: the verbs, adverbs and adjectives they lean on.
package stylometry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TagResult holds lemmatized tokens by part of speech, in document
// order with duplicates preserved. Frequency ranking happens in
// BuildProfile, not in the tagger.
type TagResult struct {
	Verbs      []string `json:"verbs"`
	Adverbs    []string `json:"adverbs"`
	Adjectives []string `json:"adjectives"`
}

// Tagger extracts part-of-speech tokens from text.
type Tagger interface {
	Tag(ctx context.Context, texts []string) (*TagResult, error)
}

// HTTPTagger calls an external POS tagging service. The service does
// the NLP heavy lifting; this client just ships text over.
type HTTPTagger struct {
	url    string
	client *http.Client
}

// NewHTTPTagger points at a tagging service endpoint.
func NewHTTPTagger(url string) *HTTPTagger {
	return &HTTPTagger{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type tagRequest struct {
	Texts []string `json:"texts"`
}

// Tag sends the texts for tagging and returns the combined token lists.
func (t *HTTPTagger) Tag(ctx context.Context, texts []string) (*TagResult, error) {
	body, err := json.Marshal(tagRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tag request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build tag request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tagger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tagger returned status %d", resp.StatusCode)
	}

	var result TagResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tagger response: %w", err)
	}
	return &result, nil
}
