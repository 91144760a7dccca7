package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/syncbrain/syncbrain/internal/content"
)

// maxBodyChars caps extracted page text so one save cannot drag an entire
// book through the embedding pipeline.
const maxBodyChars = 15000

// parseHTML wraps goquery document construction with the package error kind.
func parseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing html: %v", content.ErrExtraction, err)
	}
	return doc, nil
}

// pageTitle returns the document <title>, trimmed.
func pageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// readableText concatenates heading and paragraph text nodes in document
// order, independent of the page's structural quirks. When that heuristic
// finds nothing (some sites render every word into styled spans), it falls
// back to readability extraction over the full document.
func readableText(doc *goquery.Document, html, pageURL string) string {
	var b strings.Builder
	doc.Find("h1, h2, h3, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
		return b.Len() <= maxBodyChars
	})

	body := strings.TrimSpace(b.String())
	if body == "" {
		body = readableFallback(html, pageURL)
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}
	return body
}

// readableFallback runs go-readability over the raw HTML. Errors degrade to
// an empty body: a page that loaded but yields no text is not a failure.
func readableFallback(html, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// thumbnailSelectors is the meta-image priority order. The first matching
// value wins; a selector that matches nothing simply means "no data here".
var thumbnailSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:image"]`, "content"},           // Open Graph
	{`meta[name="twitter:image"]`, "content"},          // Twitter Card
	{`meta[property="og:image:secure_url"]`, "content"}, // Secure OG image
	{`meta[itemprop="image"]`, "content"},              // Schema.org
	{`link[rel="image_src"]`, "href"},                  // Legacy
}

// pageThumbnail extracts the best candidate thumbnail, resolved to an
// absolute URL and validated. Returns "" when no usable image exists.
func pageThumbnail(doc *goquery.Document, pageURL string) string {
	for _, cand := range thumbnailSelectors {
		if val, ok := doc.Find(cand.selector).First().Attr(cand.attr); ok && val != "" {
			if resolved := resolveThumbnail(val, pageURL); resolved != "" {
				return resolved
			}
		}
	}

	// Last resort: first inline image on the page.
	if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
		return resolveThumbnail(src, pageURL)
	}
	return ""
}

// resolveThumbnail makes candidate absolute against base and validates it.
func resolveThumbnail(candidate, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(candidate))
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref).String()
	if !ValidThumbnailURL(resolved) {
		return ""
	}
	return resolved
}

// ValidThumbnailURL reports whether raw is a storable thumbnail reference:
// non-empty, not a transient blob: URL (those never resolve again once the
// originating page session is gone), and a well-formed absolute URL.
func ValidThumbnailURL(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "blob:") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
