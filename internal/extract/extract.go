// Package extract normalizes heterogeneous content origins — freeform notes,
// generic web pages, hosted videos, social posts — into a uniform
// {title, body, thumbnail} result.
//
// Source handling is a closed set of tagged variants dispatched through one
// Registry, not ad hoc branching in callers. Each variant owns its own
// failure policy: the generic-URL path degrades navigation timeouts into a
// deterministic placeholder (the user's save action must still record
// something), every other failure surfaces as content.ErrExtraction.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syncbrain/syncbrain/internal/content"
)

// TimeoutTitle is the placeholder title recorded when page navigation times
// out on the generic-URL path.
const TimeoutTitle = "Scraping failed — timeout"

// timeoutBody explains the placeholder to the user.
const timeoutBody = "The page took too long to load. This might be due to a slow connection or a complex page."

// Source describes one piece of content to normalize. For notes, Title and
// Body carry the caller's text; for the URL kinds, URL carries the origin.
type Source struct {
	Kind  content.SourceKind
	URL   string
	Title string
	Body  string
}

// Result is the normalized extraction output. Thumbnail is either a
// validated absolute URL or empty.
type Result struct {
	Title     string
	Body      string
	Thumbnail string
}

// Extractor normalizes one source kind.
type Extractor interface {
	Extract(ctx context.Context, src Source) (Result, error)
}

// Registry dispatches extraction across the closed set of source kinds.
type Registry struct {
	extractors map[content.SourceKind]Extractor
	logger     *slog.Logger
}

// NewRegistry builds the dispatch table. renderer drives the two
// rendering-based paths; video talks to the provider metadata API directly.
func NewRegistry(renderer Renderer, video *Video, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		extractors: map[content.SourceKind]Extractor{
			content.KindNote:    Note{},
			content.KindGeneric: NewWebsite(renderer, logger),
			content.KindVideo:   video,
			content.KindSocial:  NewSocial(renderer, logger),
		},
		logger: logger,
	}
}

// Extract normalizes src via the extractor registered for its kind.
func (r *Registry) Extract(ctx context.Context, src Source) (Result, error) {
	ex, ok := r.extractors[src.Kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown source kind %q", content.ErrValidation, src.Kind)
	}

	res, err := ex.Extract(ctx, src)
	if err != nil {
		return Result{}, err
	}

	r.logger.Debug("extracted source",
		"kind", src.Kind, "title_length", len(res.Title), "body_length", len(res.Body),
		"has_thumbnail", res.Thumbnail != "")
	return res, nil
}

// Note is the passthrough extractor: it never fetches anything. A missing
// title gets a default label; a missing body stays the empty string.
type Note struct{}

// Extract implements Extractor.
func (Note) Extract(_ context.Context, src Source) (Result, error) {
	title := src.Title
	if title == "" {
		title = "Untitled Note"
	}
	return Result{Title: title, Body: src.Body}, nil
}
