package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/syncbrain/syncbrain/internal/content"
)

// Pgvector implements Index on the content_vectors table, sharing the record
// store's connection pool. Similarity is cosine: score = 1 - distance.
type Pgvector struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgvector creates a pgvector-backed index.
func NewPgvector(pool *pgxpool.Pool, logger *slog.Logger) *Pgvector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pgvector{pool: pool, logger: logger}
}

// Upsert writes points, replacing embedding and metadata on id conflict.
func (p *Pgvector) Upsert(ctx context.Context, points ...Point) error {
	for _, pt := range points {
		metadataJSON, err := json.Marshal(pt.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling vector metadata: %v", content.ErrStore, err)
		}

		embedding := pgvector.NewVector(pt.Embedding)
		_, err = p.pool.Exec(ctx,
			`INSERT INTO content_vectors (id, owner_id, embedding, metadata)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE
			 SET owner_id = EXCLUDED.owner_id,
			     embedding = EXCLUDED.embedding,
			     metadata = EXCLUDED.metadata`,
			pt.ID, pt.Metadata.Owner, embedding, metadataJSON)
		if err != nil {
			return fmt.Errorf("%w: upserting vector %q: %v", content.ErrStore, pt.ID, err)
		}

		p.logger.Debug("upserted vector", "id", pt.ID, "dimensions", len(pt.Embedding))
	}
	return nil
}

// Query returns the topK nearest neighbors for owner by cosine similarity.
func (p *Pgvector) Query(ctx context.Context, embedding []float32, owner string, topK int) ([]Match, error) {
	query := pgvector.NewVector(embedding)
	rows, err := p.pool.Query(ctx,
		`SELECT id, 1 - (embedding <=> $1) AS similarity
		 FROM content_vectors
		 WHERE owner_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		query, owner, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", content.ErrStore, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning match: %v", content.ErrStore, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading matches: %v", content.ErrStore, err)
	}
	return matches, nil
}

// Has reports whether a vector exists for id.
func (p *Pgvector) Has(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_vectors WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking vector %q: %v", content.ErrStore, id, err)
	}
	return exists, nil
}

// DeleteOne removes the vector for id; missing ids are a no-op.
func (p *Pgvector) DeleteOne(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM content_vectors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting vector %q: %v", content.ErrStore, id, err)
	}
	return nil
}

var _ Index = (*Pgvector)(nil)
