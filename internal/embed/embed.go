// Package embed converts arbitrary text into fixed-length embedding vectors.
//
// Embeddings have an input-size ceiling, and naive truncation loses meaning
// for long documents. The generator therefore applies a three-step policy:
// embed directly when the text fits, otherwise summarize the leading portion
// with the generative model, and fall back to deterministic hard truncation
// when summarization itself fails. The pipeline always produces a usable
// vector or fails with content.ErrEmbedding — never a silent zero vector.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"

	"github.com/syncbrain/syncbrain/internal/content"
)

// Summarizer produces a bounded summary of text. *llm.Generator satisfies it.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config bounds the input-size policy. Zero values are replaced by defaults
// matching the application config defaults.
type Config struct {
	// MaxDirectChars is the largest text embedded without summarization.
	MaxDirectChars int

	// SummaryInputChars bounds the leading portion handed to the summarizer.
	SummaryInputChars int

	// Dimension is the vector length requested from the provider. It must
	// match the index schema; zero leaves the model's native dimensionality,
	// which is larger than the schema expects for current Gemini embedders.
	Dimension int
}

// Generator produces embedding vectors via a Genkit embedder, with a
// generative model as summarizer for oversized input. Safe for concurrent
// use; both clients are process-lifetime singletons.
type Generator struct {
	embedder   ai.Embedder
	summarizer Summarizer
	cfg        Config
	logger     *slog.Logger
}

// New creates a Generator.
func New(embedder ai.Embedder, summarizer Summarizer, cfg Config, logger *slog.Logger) *Generator {
	if cfg.MaxDirectChars <= 0 {
		cfg.MaxDirectChars = 6000
	}
	if cfg.SummaryInputChars < cfg.MaxDirectChars {
		cfg.SummaryInputChars = 4 * cfg.MaxDirectChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{embedder: embedder, summarizer: summarizer, cfg: cfg, logger: logger}
}

// Embed returns the embedding vector for text, applying the size policy
// before the embedding call.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > g.cfg.MaxDirectChars {
		text = g.condense(ctx, text)
	}

	req := &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	}
	if g.cfg.Dimension > 0 {
		req.Options = &genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(g.cfg.Dimension)),
		}
	}

	resp, err := g.embedder.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrEmbedding, err)
	}

	// A response without a vector is a provider contract violation.
	// Returning a default vector here would silently corrupt similarity
	// ranking, so it is treated as fatal.
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: provider returned no embedding", content.ErrEmbedding)
	}

	return resp.Embeddings[0].Embedding, nil
}

// condense reduces oversized text under the direct-embed limit: summarize
// the leading portion, truncate the summary if the model overshot, and hard
// truncate the original when summarization fails.
func (g *Generator) condense(ctx context.Context, text string) string {
	lead := truncate(text, g.cfg.SummaryInputChars)
	prompt := fmt.Sprintf(
		"Summarize the key points from this text in at most %d characters. Text:\n\n%s",
		g.cfg.MaxDirectChars, lead)

	summary, err := g.summarizer.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("summarization failed, falling back to truncation",
			"error", err, "text_length", len(text))
		return truncate(text, g.cfg.MaxDirectChars)
	}

	if len(summary) > g.cfg.MaxDirectChars {
		summary = truncate(summary, g.cfg.MaxDirectChars)
	}

	g.logger.Debug("condensed oversized embedding input",
		"original_length", len(text), "summary_length", len(summary))
	return summary
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}
