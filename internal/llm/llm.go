// Package llm wraps Genkit text generation behind a minimal prompt-in,
// text-out surface. The embedding and retrieval pipelines consume it through
// their own narrow interfaces, so tests never need a Genkit instance.
package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Generator produces text from a prompt using a configured Genkit model.
// It is a process-lifetime singleton; the Genkit instance and model name are
// fixed at construction and never mutated per request.
type Generator struct {
	g     *genkit.Genkit
	model string
}

// New creates a Generator for the given model name (e.g. "gemini-2.5-flash").
func New(g *genkit.Genkit, model string) *Generator {
	return &Generator{g: g, model: model}
}

// Generate runs a single-turn generation and returns the response text.
func (gen *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName("googleai/"+gen.model),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating text: %w", err)
	}
	return resp.Text(), nil
}
