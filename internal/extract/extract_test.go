package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/log"
)

// fakeRenderer implements Renderer without a browser.
type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

func TestNoteExtractIsPassthrough(t *testing.T) {
	tests := []struct {
		name      string
		src       Source
		wantTitle string
		wantBody  string
	}{
		{
			name:      "title and body kept verbatim",
			src:       Source{Kind: content.KindNote, Title: "Meeting notes", Body: "Discussed roadmap"},
			wantTitle: "Meeting notes",
			wantBody:  "Discussed roadmap",
		},
		{
			name:      "missing title gets default label",
			src:       Source{Kind: content.KindNote, Body: "just a thought"},
			wantTitle: "Untitled Note",
			wantBody:  "just a thought",
		},
		{
			name:      "missing body stays empty",
			src:       Source{Kind: content.KindNote, Title: "empty"},
			wantTitle: "empty",
			wantBody:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Note{}.Extract(context.Background(), tt.src)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestRegistryRejectsUnknownKind(t *testing.T) {
	r := NewRegistry(&fakeRenderer{}, NewVideo(VideoConfig{}, log.NewNop()), log.NewNop())

	_, err := r.Extract(context.Background(), Source{Kind: "podcast", URL: "https://example.com"})
	if !errors.Is(err, content.ErrValidation) {
		t.Errorf("Extract() error = %v, want wrapping content.ErrValidation", err)
	}
}

func TestWebsiteTimeoutDegradesToPlaceholder(t *testing.T) {
	w := NewWebsite(&fakeRenderer{err: ErrNavigationTimeout}, log.NewNop())

	got, err := w.Extract(context.Background(), Source{Kind: content.KindGeneric, URL: "https://slow.example.com"})
	if err != nil {
		t.Fatalf("Extract() error = %v, want placeholder result", err)
	}
	if got.Title != TimeoutTitle {
		t.Errorf("Title = %q, want %q", got.Title, TimeoutTitle)
	}
	if got.Body == "" {
		t.Error("Body is empty, want explanatory placeholder")
	}
	if got.Thumbnail != "" {
		t.Errorf("Thumbnail = %q, want empty", got.Thumbnail)
	}
}

func TestWebsiteNonTimeoutErrorSurfaces(t *testing.T) {
	renderErr := errors.New("connection refused")
	w := NewWebsite(&fakeRenderer{err: renderErr}, log.NewNop())

	_, err := w.Extract(context.Background(), Source{Kind: content.KindGeneric, URL: "https://down.example.com"})
	if !errors.Is(err, renderErr) {
		t.Errorf("Extract() error = %v, want %v", err, renderErr)
	}
}

func TestWebsiteExtractsTitleBodyThumbnail(t *testing.T) {
	html := `<html><head>
		<title> Example Page </title>
		<meta property="og:image" content="/images/cover.png">
	</head><body>
		<h1>Heading</h1>
		<p>First paragraph.</p>
		<div><p>Second paragraph.</p></div>
	</body></html>`
	w := NewWebsite(&fakeRenderer{html: html}, log.NewNop())

	got, err := w.Extract(context.Background(), Source{Kind: content.KindGeneric, URL: "https://example.com/post"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Title != "Example Page" {
		t.Errorf("Title = %q, want %q", got.Title, "Example Page")
	}
	if want := "Heading First paragraph. Second paragraph."; got.Body != want {
		t.Errorf("Body = %q, want %q", got.Body, want)
	}
	if want := "https://example.com/images/cover.png"; got.Thumbnail != want {
		t.Errorf("Thumbnail = %q, want %q", got.Thumbnail, want)
	}
}

func TestWebsiteTitlelessPageGetsDefaultTitle(t *testing.T) {
	w := NewWebsite(&fakeRenderer{html: `<html><head></head><body><p>hello</p></body></html>`}, log.NewNop())

	got, err := w.Extract(context.Background(), Source{Kind: content.KindGeneric, URL: "https://example.com/bare"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Title != "Untitled" {
		t.Errorf("Title = %q, want %q", got.Title, "Untitled")
	}
	if got.Body != "hello" {
		t.Errorf("Body = %q, want %q", got.Body, "hello")
	}
}

func TestWebsiteEmptyPageYieldsEmptyBody(t *testing.T) {
	w := NewWebsite(&fakeRenderer{html: `<html><head><title>Blank</title></head><body></body></html>`}, log.NewNop())

	got, err := w.Extract(context.Background(), Source{Kind: content.KindGeneric, URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Extract() error = %v, want empty body without error", err)
	}
	if got.Body != "" {
		t.Errorf("Body = %q, want empty", got.Body)
	}
}

func TestSocialExtractsPostAndAuthor(t *testing.T) {
	html := `<html><body><article>
		<a role="link"><span>Jane Dev</span></a>
		<div data-testid="tweetText">Shipping the new release today!</div>
		<img src="https://cdn.example.com/media/pic.jpg">
	</article></body></html>`
	s := NewSocial(&fakeRenderer{html: html}, log.NewNop())

	postURL := "https://social.example.com/jane/status/1"
	got, err := s.Extract(context.Background(), Source{Kind: content.KindSocial, URL: postURL})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Title != "Post by Jane Dev" {
		t.Errorf("Title = %q, want %q", got.Title, "Post by Jane Dev")
	}
	if !strings.HasPrefix(got.Body, "Shipping the new release today!") {
		t.Errorf("Body = %q, want post text first", got.Body)
	}
	if !strings.HasSuffix(got.Body, postURL) {
		t.Errorf("Body = %q, want source URL appended", got.Body)
	}
	if got.Thumbnail != "https://cdn.example.com/media/pic.jpg" {
		t.Errorf("Thumbnail = %q, want media image", got.Thumbnail)
	}
}

func TestSocialMissingNodesDegradeToDefaults(t *testing.T) {
	s := NewSocial(&fakeRenderer{html: `<html><body><article></article></body></html>`}, log.NewNop())

	got, err := s.Extract(context.Background(), Source{Kind: content.KindSocial, URL: "https://social.example.com/x"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Title != "Post by Unknown" {
		t.Errorf("Title = %q, want %q", got.Title, "Post by Unknown")
	}
	if !strings.HasPrefix(got.Body, "No post content") {
		t.Errorf("Body = %q, want default content marker", got.Body)
	}
}

func TestSocialRenderErrorSurfaces(t *testing.T) {
	s := NewSocial(&fakeRenderer{err: ErrNavigationTimeout}, log.NewNop())

	_, err := s.Extract(context.Background(), Source{Kind: content.KindSocial, URL: "https://social.example.com/x"})
	if err == nil {
		t.Fatal("Extract() error = nil, want timeout to surface on the social path")
	}
}

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL123&v=abc123XYZ_-", "abc123XYZ_-"},
		{"https://www.youtube.com/watch?v=abc#t=30", "abc"},
		{"https://example.com/not-a-video", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ParseVideoID(tt.url); got != tt.want {
			t.Errorf("ParseVideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestBestThumbnailPrefersHighestResolution(t *testing.T) {
	thumbs := map[string]videoThumbnail{
		"default": {URL: "https://img.example.com/default.jpg", Width: 120, Height: 90},
		"high":    {URL: "https://img.example.com/high.jpg", Width: 480, Height: 360},
		"maxres":  {URL: "https://img.example.com/maxres.jpg", Width: 1280, Height: 720},
	}
	if got := bestThumbnail(thumbs); got != "https://img.example.com/maxres.jpg" {
		t.Errorf("bestThumbnail() = %q, want maxres", got)
	}

	if got := bestThumbnail(map[string]videoThumbnail{}); got != "" {
		t.Errorf("bestThumbnail(empty) = %q, want empty", got)
	}

	invalid := map[string]videoThumbnail{
		"maxres": {URL: "blob:ephemeral", Width: 1280, Height: 720},
		"high":   {URL: "https://img.example.com/high.jpg", Width: 480, Height: 360},
	}
	if got := bestThumbnail(invalid); got != "https://img.example.com/high.jpg" {
		t.Errorf("bestThumbnail() = %q, want valid candidate over larger invalid one", got)
	}
}

func TestValidThumbnailURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://example.com/image.png", true},
		{"http://example.com/a.jpg?size=large", true},
		{"", false},
		{"blob:https://example.com/3f2a", false},
		{"not a url", false},
		{"/relative/path.png", false},
	}

	for _, tt := range tests {
		if got := ValidThumbnailURL(tt.raw); got != tt.want {
			t.Errorf("ValidThumbnailURL(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestResolveThumbnailMakesRelativeAbsolute(t *testing.T) {
	got := resolveThumbnail("../img/cover.png", "https://example.com/blog/post")
	if got != "https://example.com/img/cover.png" {
		t.Errorf("resolveThumbnail() = %q, want resolved absolute URL", got)
	}

	if got := resolveThumbnail("blob:xyz", "https://example.com"); got != "" {
		t.Errorf("resolveThumbnail(blob) = %q, want empty", got)
	}
}
