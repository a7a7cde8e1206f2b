package index

import (
	"context"
	"testing"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("")

	if b.Collection() != "book_summaries" {
		t.Errorf("collection = %q", b.Collection())
	}

	points := []Point{
		{ID: "book_0", Vector: []float32{1, 0}, Title: "A"},
		{ID: "book_1", Vector: []float32{0, 1}, Title: "B"},
		{ID: "book_2", Vector: []float32{0.9, 0.1}, Title: "C"},
	}
	if err := b.Upsert(ctx, points); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.Count(ctx); n != 3 {
		t.Fatalf("count = %d", n)
	}

	scored, err := b.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(scored) != 2 {
		t.Fatalf("results = %d", len(scored))
	}
	if scored[0].Title != "A" || scored[1].Title != "C" {
		t.Errorf("ranking = %q, %q", scored[0].Title, scored[1].Title)
	}

	// same id replaces, not duplicates
	if err := b.Upsert(ctx, []Point{{ID: "book_0", Vector: []float32{0, 1}, Title: "A2"}}); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.Count(ctx); n != 3 {
		t.Errorf("count after replace = %d", n)
	}

	if err := b.Drop(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.Count(ctx); n != 0 {
		t.Errorf("count after drop = %d", n)
	}
}
