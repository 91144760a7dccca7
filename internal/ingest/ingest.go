// Package ingest orchestrates the save pipeline: source extraction,
// record persistence, embedding, and the vector index write. It owns the
// dual-write consistency policy between the record store and the index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/extract"
	"github.com/syncbrain/syncbrain/internal/store"
	"github.com/syncbrain/syncbrain/internal/vector"
)

// timestampLayout renders the creation time in human-readable form inside
// the embedding input, so near-duplicate notes stay distinguishable in
// vector space.
const timestampLayout = "1/2/2006, 3:04:05 PM"

// Embedder produces an embedding vector for text. *embed.Generator
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config tunes ingestion.
type Config struct {
	// SnippetChars bounds the text snippet denormalized into vector
	// metadata.
	SnippetChars int
}

// Coordinator runs the ingestion pipeline. All dependencies are injected
// process-lifetime singletons; the coordinator holds no per-request state.
type Coordinator struct {
	extractor *extract.Registry
	embedder  Embedder
	records   store.Store
	index     vector.Index
	cfg       Config
	logger    *slog.Logger
}

// New creates a Coordinator.
func New(extractor *extract.Registry, embedder Embedder, records store.Store, index vector.Index, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		extractor: extractor,
		embedder:  embedder,
		records:   records,
		index:     index,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ingest normalizes, persists, and indexes one piece of content.
//
// The ordering is fixed — extract, merge, create record, embed, upsert
// vector — because the embedding is keyed by the store-assigned record id.
// If record creation fails nothing downstream runs. If embedding or the
// vector upsert fails afterwards, the created record is returned together
// with an error wrapping content.ErrVectorWrite: the record stays visible in
// listings, is absent from semantic search, and is never rolled back. The
// reconcile pass repairs it later.
func (c *Coordinator) Ingest(ctx context.Context, owner string, src extract.Source) (content.Record, error) {
	if owner == "" {
		return content.Record{}, fmt.Errorf("%w: owner is required", content.ErrValidation)
	}
	if !src.Kind.Valid() {
		return content.Record{}, fmt.Errorf("%w: unknown source kind %q", content.ErrValidation, src.Kind)
	}
	if src.Kind != content.KindNote && src.URL == "" {
		return content.Record{}, fmt.Errorf("%w: url is required for kind %q", content.ErrValidation, src.Kind)
	}

	// Extraction is skipped for notes that already carry their body; the
	// note extractor is a pure passthrough either way.
	var extracted extract.Result
	if src.Kind == content.KindNote && src.Body != "" {
		extracted = extract.Result{Title: src.Title, Body: src.Body}
		if extracted.Title == "" {
			extracted.Title = "Untitled Note"
		}
	} else {
		var err error
		extracted, err = c.extractor.Extract(ctx, src)
		if err != nil {
			return content.Record{}, err
		}
	}

	// Caller-supplied values win when non-empty.
	title := src.Title
	if title == "" {
		title = extracted.Title
	}
	body := src.Body
	if body == "" {
		body = extracted.Body
	}

	rec, err := c.records.Create(ctx, content.Fields{
		Owner:     owner,
		Title:     title,
		Body:      body,
		Kind:      src.Kind,
		SourceURL: src.URL,
		Thumbnail: extracted.Thumbnail,
	})
	if err != nil {
		return content.Record{}, err
	}

	if err := c.indexRecord(ctx, rec); err != nil {
		c.logger.Warn("record created but not indexed",
			"id", rec.ID, "owner", owner, "error", err)
		return rec, fmt.Errorf("%w: %v", content.ErrVectorWrite, err)
	}

	c.logger.Info("ingested content", "id", rec.ID, "owner", owner, "kind", rec.Kind)
	return rec, nil
}

// indexRecord embeds a record and upserts it into the vector index with its
// metadata projection. Used by both ingestion and the reconcile pass.
func (c *Coordinator) indexRecord(ctx context.Context, rec content.Record) error {
	embedding, err := c.embedder.Embed(ctx, EmbedInput(rec))
	if err != nil {
		return err
	}

	return c.index.Upsert(ctx, vector.Point{
		ID:        rec.ID,
		Embedding: embedding,
		Metadata: content.VectorMetadata{
			Owner:     rec.Owner,
			Title:     rec.Title,
			Kind:      string(rec.Kind),
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
			Snippet:   rec.Snippet(c.cfg.SnippetChars),
			Thumbnail: rec.Thumbnail,
		},
	})
}

// EmbedInput composes the embedding input text deterministically from the
// record's title, human-readable creation timestamp, and body.
func EmbedInput(rec content.Record) string {
	return fmt.Sprintf("Title: %s\nDate: %s\nContent: %s",
		rec.Title, rec.CreatedAt.Format(timestampLayout), rec.Body)
}

// List returns all of an owner's records, newest first.
func (c *Coordinator) List(ctx context.Context, owner string) ([]content.Record, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", content.ErrValidation)
	}
	return c.records.FindByOwner(ctx, owner)
}

// Delete removes a record from both stores. The record is deleted first;
// only then is the vector removed, mirroring the ingestion order so a
// half-completed delete leaves at worst an orphaned vector whose id no
// longer hydrates.
func (c *Coordinator) Delete(ctx context.Context, owner, id string) error {
	if owner == "" || id == "" {
		return fmt.Errorf("%w: owner and id are required", content.ErrValidation)
	}

	if err := c.records.DeleteOne(ctx, owner, id); err != nil {
		return err
	}
	if err := c.index.DeleteOne(ctx, id); err != nil {
		return err
	}

	c.logger.Info("deleted content", "id", id, "owner", owner)
	return nil
}

// Reconcile re-embeds every record that has no vector in the index. It is
// idempotent: records already indexed are skipped, and a re-run after a
// partial failure picks up where the previous run left off. Returns the
// number of records repaired.
func (c *Coordinator) Reconcile(ctx context.Context) (int, error) {
	const pageSize = 200

	repaired := 0
	for offset := 0; ; offset += pageSize {
		page, err := c.records.All(ctx, pageSize, offset)
		if err != nil {
			return repaired, err
		}
		if len(page) == 0 {
			return repaired, nil
		}

		for _, rec := range page {
			ok, err := c.index.Has(ctx, rec.ID)
			if err != nil {
				return repaired, err
			}
			if ok {
				continue
			}

			if err := c.indexRecord(ctx, rec); err != nil {
				if errors.Is(err, content.ErrEmbedding) {
					// One bad record must not block the rest.
					c.logger.Warn("skipping record during reconcile",
						"id", rec.ID, "error", err)
					continue
				}
				return repaired, err
			}
			repaired++
			c.logger.Info("re-indexed record", "id", rec.ID, "owner", rec.Owner)
		}
	}
}
