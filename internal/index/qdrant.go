package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantBackend is a minimal REST client to Qdrant using cosine distance.
// The collection is created on first upsert, sized from the first vector.
//
// Qdrant point ids must be unsigned integers or UUIDs, so the positional
// document id ("book_{i}") lives in the payload and the point id is a
// deterministic UUID derived from it.
type QdrantBackend struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func NewQdrantBackend(cfg QdrantConfig) *QdrantBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	return &QdrantBackend{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (b *QdrantBackend) Collection() string {
	return b.collection
}

func (b *QdrantBackend) Location() string {
	return b.url
}

func (b *QdrantBackend) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := b.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", b.url, b.collection), map[string]any{"exact": true}, &resp)
	if err != nil {
		// A collection that does not exist yet holds zero documents.
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return resp.Result.Count, nil
}

func (b *QdrantBackend) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := b.ensureCollection(ctx, len(points[0].Vector)); err != nil {
		return err
	}

	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		qdrantPoints[i] = map[string]any{
			"id":     uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.ID)).String(),
			"vector": p.Vector,
			"payload": map[string]any{
				"id":       p.ID,
				"title":    p.Title,
				"summary":  p.Summary,
				"document": p.Document,
			},
		}
	}
	body := map[string]any{"points": qdrantPoints}
	return b.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", b.url, b.collection), body)
}

func (b *QdrantBackend) Query(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	if k <= 0 {
		k = 3
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := b.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", b.url, b.collection), req, &resp); err != nil {
		return nil, err
	}

	results := make([]Scored, 0, len(resp.Result))
	for _, r := range resp.Result {
		s := Scored{Similarity: r.Score}
		if v, ok := r.Payload["id"].(string); ok {
			s.ID = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			s.Title = v
		}
		if v, ok := r.Payload["summary"].(string); ok {
			s.Summary = v
		}
		if v, ok := r.Payload["document"].(string); ok {
			s.Document = v
		}
		results = append(results, s)
	}
	return results, nil
}

func (b *QdrantBackend) Drop(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", b.url, b.collection), nil)
	if err != nil {
		return err
	}
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE collection failed: %s", resp.Status)
	}
	return nil
}

func (b *QdrantBackend) ensureCollection(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK when the collection exists with the same schema.
	return b.putJSON(ctx, fmt.Sprintf("%s/collections/%s", b.url, b.collection), body)
}

type statusError struct {
	code   int
	status string
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant request %s failed: %s", e.url, e.status)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (b *QdrantBackend) putJSON(ctx context.Context, url string, body any) error {
	return b.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (b *QdrantBackend) postJSON(ctx context.Context, url string, body any, out any) error {
	return b.doJSON(ctx, http.MethodPost, url, body, out)
}

func (b *QdrantBackend) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, status: resp.Status, url: url}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
