package extract

import (
	"context"
	"errors"
	"log/slog"
)

// Website extracts generic URLs. Rendering is required because body text is
// often populated by client-side script; the readable text and thumbnail are
// then pulled from the rendered DOM.
type Website struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewWebsite creates the generic-URL extractor.
func NewWebsite(renderer Renderer, logger *slog.Logger) *Website {
	if logger == nil {
		logger = slog.Default()
	}
	return &Website{renderer: renderer, logger: logger}
}

// Extract renders the page and pulls title, readable text, and thumbnail.
//
// A navigation timeout does not propagate: ingestion must still record
// something for the user's save action, so it degrades to a deterministic
// placeholder result. A page that renders but contains no text yields an
// empty body, not an error.
func (w *Website) Extract(ctx context.Context, src Source) (Result, error) {
	html, err := w.renderer.Render(ctx, src.URL)
	if err != nil {
		if errors.Is(err, ErrNavigationTimeout) {
			w.logger.Warn("page navigation timed out, recording placeholder", "url", src.URL)
			return Result{Title: TimeoutTitle, Body: timeoutBody}, nil
		}
		return Result{}, err
	}

	doc, err := parseHTML(html)
	if err != nil {
		return Result{}, err
	}

	// A titleless page still yields a record the user can find later.
	title := pageTitle(doc)
	if title == "" {
		title = "Untitled"
	}

	return Result{
		Title:     title,
		Body:      readableText(doc, html, src.URL),
		Thumbnail: pageThumbnail(doc, src.URL),
	}, nil
}
