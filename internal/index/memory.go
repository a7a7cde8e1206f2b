package index

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend keeps vectors in process memory. Nothing survives a restart;
// it exists for tests and for running without a database.
type MemoryBackend struct {
	mu         sync.RWMutex
	collection string
	points     map[string]Point
}

func NewMemoryBackend(collection string) *MemoryBackend {
	if collection == "" {
		collection = defaultCollection
	}
	return &MemoryBackend{
		collection: collection,
		points:     make(map[string]Point),
	}
}

func (m *MemoryBackend) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

func (m *MemoryBackend) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.ID] = p
	}
	return nil
}

func (m *MemoryBackend) Query(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]Scored, 0, len(m.points))
	for _, p := range m.points {
		scored = append(scored, Scored{
			ID:         p.ID,
			Title:      p.Title,
			Summary:    p.Summary,
			Document:   p.Document,
			Similarity: cosineSimilarity(vector, p.Vector),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryBackend) Drop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[string]Point)
	return nil
}

func (m *MemoryBackend) Collection() string {
	return m.collection
}

func (m *MemoryBackend) Location() string {
	return ":memory:"
}
