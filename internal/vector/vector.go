// Package vector provides the vector index capability: a narrow similarity
// search interface plus a PostgreSQL/pgvector implementation (default) and a
// Qdrant implementation selected by configuration.
//
// The index stores one embedding per content record, keyed by the record id,
// together with a denormalized metadata projection used for owner filtering.
// Embeddings are regenerated whole, never partially updated.
package vector

import (
	"context"

	"github.com/syncbrain/syncbrain/internal/content"
)

// Point is one embedding plus its metadata projection, keyed by record id.
type Point struct {
	ID        string
	Embedding []float32
	Metadata  content.VectorMetadata
}

// Match is a nearest-neighbor hit. Score is whatever scale the underlying
// index reports, higher meaning more similar.
type Match struct {
	ID    string
	Score float64
}

// Index is the capability interface over the similarity-search service.
type Index interface {
	// Upsert writes points, replacing any existing embedding with the
	// same id.
	Upsert(ctx context.Context, points ...Point) error

	// Query returns the topK nearest neighbors of the embedding, filtered
	// to the given owner so no cross-tenant match is ever returned.
	Query(ctx context.Context, embedding []float32, owner string, topK int) ([]Match, error)

	// Has reports whether an embedding exists for the given id. Used by
	// the reconciliation pass to find records missing from the index.
	Has(ctx context.Context, id string) (bool, error)

	// DeleteOne removes the embedding for the given id. Deleting a missing
	// id is not an error.
	DeleteOne(ctx context.Context, id string) error
}
