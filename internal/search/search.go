// Package search orchestrates retrieval-augmented answers: query embedding,
// vector search, record hydration, re-ranking, and grounded synthesis via
// the generative model.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/store"
	"github.com/syncbrain/syncbrain/internal/vector"
)

// Embedder produces an embedding vector for text. *embed.Generator
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Answerer produces text from a prompt. *llm.Generator satisfies it.
type Answerer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config tunes the two-stage narrowing. The index returns TopK candidates;
// after hydration the ranked list is cut to KeepN because near-ties often
// turn out redundant once full records are visible.
type Config struct {
	TopK         int
	KeepN        int
	ExcerptChars int // per-record excerpt in the grounding context
}

// Result is one ranked, scored search hit.
type Result struct {
	Record content.Record
	Score  float64
}

// Response is the outcome of a search. When Results is empty, Answer is
// empty too: the generative model is never called without grounding
// candidates.
type Response struct {
	Answer  string
	Results []Result
}

// Coordinator runs the retrieval pipeline. Cross-tenant isolation relies on
// two owner filters: the vector index metadata filter and the record-store
// hydration filter.
type Coordinator struct {
	embedder Embedder
	index    vector.Index
	records  store.Store
	answerer Answerer
	cfg      Config
	logger   *slog.Logger
}

// New creates a Coordinator.
func New(embedder Embedder, index vector.Index, records store.Store, answerer Answerer, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.KeepN <= 0 || cfg.KeepN > cfg.TopK {
		cfg.KeepN = 2
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = 2000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		embedder: embedder,
		index:    index,
		records:  records,
		answerer: answerer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search answers a natural-language query from the owner's saved content.
func (c *Coordinator) Search(ctx context.Context, owner, query string) (Response, error) {
	if owner == "" {
		return Response{}, fmt.Errorf("%w: owner is required", content.ErrValidation)
	}
	if strings.TrimSpace(query) == "" {
		return Response{}, fmt.Errorf("%w: query is required", content.ErrValidation)
	}

	// Query embedding failures are fatal to the request.
	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return Response{}, err
	}

	matches, err := c.index.Query(ctx, embedding, owner, c.cfg.TopK)
	if err != nil {
		return Response{}, err
	}

	results, err := c.hydrate(ctx, owner, matches)
	if err != nil {
		return Response{}, err
	}

	if len(results) == 0 {
		c.logger.Debug("no relevant content for query", "owner", owner)
		return Response{Results: []Result{}}, nil
	}

	answer, err := c.answerer.Generate(ctx, c.prompt(query, results))
	if err != nil {
		return Response{}, fmt.Errorf("%w: generating answer: %v", content.ErrStore, err)
	}

	c.logger.Info("answered search", "owner", owner, "results", len(results))
	return Response{Answer: answer, Results: results}, nil
}

// hydrate loads the matched records, re-filters by owner as defense in depth
// (a stale index match for another owner must never surface), joins each
// record back to its score, and keeps the KeepN best. The sort is stable, so
// score ties keep the index's original order.
func (c *Coordinator) hydrate(ctx context.Context, owner string, matches []vector.Match) ([]Result, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	records, err := c.records.FindByIDs(ctx, owner, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]content.Record, len(records))
	for _, r := range records {
		if r.Owner != owner {
			// FindByIDs already filters by owner; this guards against a
			// misbehaving store implementation.
			continue
		}
		byID[r.ID] = r
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		rec, ok := byID[m.ID]
		if !ok {
			continue
		}
		results = append(results, Result{Record: rec, Score: m.Score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > c.cfg.KeepN {
		results = results[:c.cfg.KeepN]
	}
	return results, nil
}

// prompt composes the grounding context and the instruction for the model.
// The model is told to ground its answer in the user's saved content but may
// draw on general knowledge when the context has no direct answer — a
// deliberate choice favoring useful answers over strict grounding.
func (c *Coordinator) prompt(query string, results []Result) string {
	var b strings.Builder
	b.WriteString("Below is the relevant information from the user's saved content:\n\n")

	for i, res := range results {
		fmt.Fprintf(&b, "[Content %d]\nTitle: %s\nType: %s\n", i+1, res.Record.Title, res.Record.Kind)
		if res.Record.SourceURL != "" {
			fmt.Fprintf(&b, "Link: %s\n", res.Record.SourceURL)
		}
		fmt.Fprintf(&b, "Content: %s\n\n", excerpt(res.Record.Body, c.cfg.ExcerptChars))
	}

	fmt.Fprintf(&b, "\nUser query: %q\n\n", query)
	b.WriteString("Based on the information above from the user's saved content, provide a helpful and concise response to their query. ")
	b.WriteString("If the information doesn't contain a direct answer, extract relevant insights that might be helpful, and feel free to draw on general knowledge to fill the gaps.")
	return b.String()
}

// excerpt bounds a record body for the grounding context without splitting a
// UTF-8 sequence, marking truncation with an ellipsis so the model knows the
// text is cut.
func excerpt(body string, n int) string {
	if len(body) <= n {
		return body
	}
	cut := body[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}
