package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/librarian/internal/corpus"
	"github.com/felixgeelhaar/librarian/internal/observe"
)

type countingEmbedder struct {
	calls   int
	failOn  int // 1-based call number to fail on; 0 never fails
	failErr error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn > 0 && e.calls >= e.failOn {
		return nil, e.failErr
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeBackend struct {
	points   []Point
	queryOut []Scored
	countErr error
	queryErr error
}

func (b *fakeBackend) Count(ctx context.Context) (int, error) {
	return len(b.points), b.countErr
}

func (b *fakeBackend) Upsert(ctx context.Context, points []Point) error {
	b.points = append(b.points, points...)
	return nil
}

func (b *fakeBackend) Query(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	if b.queryErr != nil {
		return nil, b.queryErr
	}
	out := b.queryOut
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (b *fakeBackend) Drop(ctx context.Context) error {
	b.points = nil
	return nil
}

func (b *fakeBackend) Collection() string { return "book_summaries" }
func (b *fakeBackend) Location() string   { return "/tmp/testdata" }

func entries(n int) []corpus.Entry {
	out := make([]corpus.Entry, n)
	for i := range out {
		out[i] = corpus.Entry{Title: fmt.Sprintf("Book %d", i), Summary: "A summary."}
	}
	return out
}

func TestIndex_PopulateSkipsNonEmpty(t *testing.T) {
	embedder := &countingEmbedder{}
	backend := &fakeBackend{}
	ix := New(embedder, backend, observe.NewNop())

	if err := ix.Populate(context.Background(), entries(3)); err != nil {
		t.Fatalf("first Populate failed: %v", err)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 3 embedding calls, got %d", embedder.calls)
	}
	if len(backend.points) != 3 {
		t.Fatalf("expected 3 stored points, got %d", len(backend.points))
	}
	if backend.points[0].ID != "book_0" || backend.points[2].ID != "book_2" {
		t.Errorf("expected positional ids, got %q and %q", backend.points[0].ID, backend.points[2].ID)
	}

	// The guard makes a second call free of embedding work.
	if err := ix.Populate(context.Background(), entries(3)); err != nil {
		t.Fatalf("second Populate failed: %v", err)
	}
	if embedder.calls != 3 {
		t.Errorf("second Populate should not embed, got %d total calls", embedder.calls)
	}
}

func TestIndex_PopulateAbortsOnEmbedError(t *testing.T) {
	embedder := &countingEmbedder{failOn: 2, failErr: errors.New("rate limited")}
	backend := &fakeBackend{}
	ix := New(embedder, backend, observe.NewNop())

	err := ix.Populate(context.Background(), entries(3))
	if err == nil {
		t.Fatal("expected an error when embedding fails mid-loop")
	}
	// No transactional guarantee: the first entry stays.
	if len(backend.points) != 1 {
		t.Errorf("expected 1 point from partial population, got %d", len(backend.points))
	}
}

func TestIndex_WouldPopulate(t *testing.T) {
	backend := &fakeBackend{}
	ix := New(&countingEmbedder{}, backend, observe.NewNop())

	would, err := ix.WouldPopulate(context.Background())
	if err != nil || !would {
		t.Errorf("empty collection should populate, got (%v, %v)", would, err)
	}

	backend.points = append(backend.points, Point{ID: "book_0"})
	would, err = ix.WouldPopulate(context.Background())
	if err != nil || would {
		t.Errorf("non-empty collection should skip, got (%v, %v)", would, err)
	}
}

func TestIndex_Search(t *testing.T) {
	backend := &fakeBackend{
		queryOut: []Scored{
			{ID: "book_0", Title: "1984", Summary: "Dystopia.", Similarity: 0.91},
			{ID: "book_1", Title: "Brave New World", Summary: "Another dystopia.", Similarity: 0.72},
		},
	}
	ix := New(&countingEmbedder{}, backend, observe.NewNop())

	hits := ix.Search(context.Background(), "totalitarian surveillance", 3)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Title != "1984" {
		t.Errorf("expected best hit first, got %q", hits[0].Title)
	}
	if hits[0].Similarity != 0.91 {
		t.Errorf("similarity should pass through untouched, got %v", hits[0].Similarity)
	}
}

func TestIndex_SearchFailsOpen(t *testing.T) {
	t.Run("backend error", func(t *testing.T) {
		backend := &fakeBackend{queryErr: errors.New("connection refused")}
		ix := New(&countingEmbedder{}, backend, observe.NewNop())
		if hits := ix.Search(context.Background(), "anything", 3); len(hits) != 0 {
			t.Errorf("expected no hits on backend error, got %d", len(hits))
		}
	})

	t.Run("embedding error", func(t *testing.T) {
		embedder := &countingEmbedder{failOn: 1, failErr: errors.New("boom")}
		ix := New(embedder, &fakeBackend{}, observe.NewNop())
		if hits := ix.Search(context.Background(), "anything", 3); len(hits) != 0 {
			t.Errorf("expected no hits on embedding error, got %d", len(hits))
		}
	})
}

func TestIndex_ResetAllowsRepopulate(t *testing.T) {
	embedder := &countingEmbedder{}
	backend := &fakeBackend{}
	ix := New(embedder, backend, observe.NewNop())

	if err := ix.Populate(context.Background(), entries(2)); err != nil {
		t.Fatal(err)
	}
	if err := ix.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := ix.Populate(context.Background(), entries(2)); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != 4 {
		t.Errorf("expected repopulation to embed again, got %d calls", embedder.calls)
	}
}

func TestIndex_Info(t *testing.T) {
	backend := &fakeBackend{points: []Point{{ID: "book_0"}}}
	ix := New(&countingEmbedder{}, backend, observe.NewNop())

	info := ix.Info(context.Background())
	if info.CollectionName != "book_summaries" {
		t.Errorf("unexpected collection name %q", info.CollectionName)
	}
	if info.DocumentCount != 1 {
		t.Errorf("unexpected document count %d", info.DocumentCount)
	}
	if info.PersistDirectory != "/tmp/testdata" {
		t.Errorf("unexpected persist directory %q", info.PersistDirectory)
	}
}
