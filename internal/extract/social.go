package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Post-node selectors for short-form post platforms. Best effort: platform
// markup changes without notice, so a selector that stops matching degrades
// to the unknown-author / no-content defaults instead of failing the save.
const (
	postTextSelector   = `article div[data-testid="tweetText"]`
	postAuthorSelector = `article a[role="link"] span`
	postMediaSelector  = `article img[src*="media"]`
)

// Social extracts short-form social posts from the rendered page.
type Social struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewSocial creates the social-post extractor.
func NewSocial(renderer Renderer, logger *slog.Logger) *Social {
	if logger == nil {
		logger = slog.Default()
	}
	return &Social{renderer: renderer, logger: logger}
}

// Extract renders the post page and locates the primary post-text and author
// nodes. Missing nodes are data gaps, not errors.
func (s *Social) Extract(ctx context.Context, src Source) (Result, error) {
	html, err := s.renderer.Render(ctx, src.URL)
	if err != nil {
		return Result{}, err
	}

	doc, err := parseHTML(html)
	if err != nil {
		return Result{}, err
	}

	text := strings.TrimSpace(doc.Find(postTextSelector).First().Text())
	if text == "" {
		text = "No post content"
	}
	author := strings.TrimSpace(doc.Find(postAuthorSelector).First().Text())
	if author == "" {
		author = "Unknown"
	}

	var thumbnail string
	if mediaSrc, ok := doc.Find(postMediaSelector).First().Attr("src"); ok {
		thumbnail = resolveThumbnail(mediaSrc, src.URL)
	}

	s.logger.Debug("extracted social post", "url", src.URL, "author", author)
	return Result{
		Title:     fmt.Sprintf("Post by %s", author),
		Body:      fmt.Sprintf("%s\n\n%s", text, src.URL),
		Thumbnail: thumbnail,
	}, nil
}
