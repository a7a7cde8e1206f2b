// Package index wraps a vector database with embedding-backed population
// and semantic search over the book corpus.
package index

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/librarian/internal/corpus"
	"github.com/felixgeelhaar/librarian/internal/observe"
)

const defaultCollection = "book_summaries"

// Embedder converts free text into a numeric vector representation.
// provider.Provider satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Point is one stored document with its vector and metadata.
type Point struct {
	ID       string
	Vector   []float32
	Title    string
	Summary  string
	Document string
}

// Scored is a ranked backend result. Similarity is 1 - cosine distance as
// reported by the backend; an opaque ranking signal, not a probability.
type Scored struct {
	ID         string
	Title      string
	Summary    string
	Document   string
	Similarity float32
}

// Backend persists vectors and supports nearest-neighbor search.
type Backend interface {
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, k int) ([]Scored, error)
	// Drop deletes all stored points, leaving the backend empty and usable.
	Drop(ctx context.Context) error
	// Collection returns the collection name.
	Collection() string
	// Location identifies where the collection persists (directory or URL).
	Location() string
}

// Hit is one search result surfaced to the pipeline.
type Hit struct {
	Title      string
	Summary    string
	Document   string
	Similarity float32
}

// Info describes the current collection.
type Info struct {
	CollectionName   string `json:"collection_name"`
	DocumentCount    int    `json:"document_count"`
	PersistDirectory string `json:"persist_directory"`
}

// Index composes an embedder and a vector backend.
type Index struct {
	embedder Embedder
	backend  Backend
	obs      *observe.Observer
}

func New(embedder Embedder, backend Backend, obs *observe.Observer) *Index {
	return &Index{
		embedder: embedder,
		backend:  backend,
		obs:      obs,
	}
}

// WouldPopulate reports whether Populate would do anything. Population is
// skipped whenever the collection already holds at least one document.
func (ix *Index) WouldPopulate(ctx context.Context) (bool, error) {
	n, err := ix.backend.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Populate embeds each entry's content and stores it with a deterministic
// positional id ("book_{i}"). A non-empty collection is left untouched:
// skip-on-non-empty, not a merge. Corpus edits need an explicit Reset before
// they become searchable.
//
// The first embedding failure aborts with an error; entries upserted before
// the failure stay in the collection.
func (ix *Index) Populate(ctx context.Context, entries []corpus.Entry) error {
	ctx, span := ix.obs.StartSpan(ctx, "index.Populate")
	defer span.End()

	n, err := ix.backend.Count(ctx)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if n > 0 {
		ix.obs.Log().Info().Int("documents", n).Msg("collection already populated, skipping")
		return nil
	}
	if len(entries) == 0 {
		ix.obs.Log().Warn().Msg("no corpus entries to populate")
		return nil
	}

	for i, entry := range entries {
		vector, err := ix.embedder.Embed(ctx, entry.Content())
		if err != nil {
			return fmt.Errorf("embed %q: %w", entry.Title, err)
		}
		point := Point{
			ID:       fmt.Sprintf("book_%d", i),
			Vector:   vector,
			Title:    entry.Title,
			Summary:  entry.Summary,
			Document: entry.Content(),
		}
		if err := ix.backend.Upsert(ctx, []Point{point}); err != nil {
			return fmt.Errorf("upsert %q: %w", entry.Title, err)
		}
		ix.obs.Log().Info().Str("title", entry.Title).Msg("indexed")
	}

	ix.obs.Log().Info().Int("documents", len(entries)).Msg("collection populated")
	return nil
}

// Search embeds the query and returns up to k hits best-first. Any backend
// or embedding error fails open to an empty result set.
func (ix *Index) Search(ctx context.Context, query string, k int) []Hit {
	ctx, span := ix.obs.StartSpan(ctx, "index.Search")
	defer span.End()

	vector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		ix.obs.Log().Error().Err(err).Msg("query embedding failed, returning no hits")
		return nil
	}

	scored, err := ix.backend.Query(ctx, vector, k)
	if err != nil {
		ix.obs.Log().Error().Err(err).Msg("vector search failed, returning no hits")
		return nil
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, Hit{
			Title:      s.Title,
			Summary:    s.Summary,
			Document:   s.Document,
			Similarity: s.Similarity,
		})
	}
	return hits
}

// Info reports the collection name, document count and persist location.
func (ix *Index) Info(ctx context.Context) Info {
	count, err := ix.backend.Count(ctx)
	if err != nil {
		ix.obs.Log().Error().Err(err).Msg("failed to count documents")
	}
	return Info{
		CollectionName:   ix.backend.Collection(),
		DocumentCount:    count,
		PersistDirectory: ix.backend.Location(),
	}
}

// Reset irreversibly clears the collection so a later Populate starts fresh.
func (ix *Index) Reset(ctx context.Context) error {
	if err := ix.backend.Drop(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	ix.obs.Log().Info().Str("collection", ix.backend.Collection()).Msg("collection reset")
	return nil
}
