package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/syncbrain/syncbrain/internal/content"
)

// videoIDPattern tolerantly matches hosted-video ids in both short-link and
// query-param URL forms (watch?v=, youtu.be/, embed/, &v=).
var videoIDPattern = regexp.MustCompile(`(?:youtu\.be/|v/|embed/|watch\?v=|&v=)([^#&?/]+)`)

// videoAPIEndpoint is the provider metadata API. No rendering happens on
// this path; a single JSON call returns title, description, and thumbnails.
const videoAPIEndpoint = "https://www.googleapis.com/youtube/v3/videos"

// VideoConfig configures the metadata API client.
type VideoConfig struct {
	APIKey    string
	TimeoutMs int
	RateLimit float64 // requests per second
}

// Video extracts hosted-video URLs via the provider's metadata API. The HTTP
// client and rate limiter are process-lifetime singletons shared across
// requests; the limiter keeps bursts of saves under the provider quota.
type Video struct {
	cfg     VideoConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewVideo creates the video extractor.
func NewVideo(cfg VideoConfig, logger *slog.Logger) *Video {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 15000
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Video{
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:  logger,
	}
}

// ParseVideoID extracts the video id from a hosted-video URL. Returns ""
// when the URL carries no recognizable id.
func ParseVideoID(rawURL string) string {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// videoAPIResponse mirrors the subset of the metadata API response we read.
type videoAPIResponse struct {
	Items []struct {
		Snippet struct {
			Title       string                    `json:"title"`
			Description string                    `json:"description"`
			Thumbnails  map[string]videoThumbnail `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type videoThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Extract fetches the video's official metadata. The body is composed as
// description plus the original URL so the link survives in search results.
func (v *Video) Extract(ctx context.Context, src Source) (Result, error) {
	videoID := ParseVideoID(src.URL)
	if videoID == "" {
		return Result{}, fmt.Errorf("%w: no video id in %q", content.ErrValidation, src.URL)
	}

	if err := v.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: waiting for rate limiter: %v", content.ErrExtraction, err)
	}

	q := url.Values{}
	q.Set("id", videoID)
	q.Set("key", v.cfg.APIKey)
	q.Set("part", "snippet")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoAPIEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: building metadata request: %v", content.ErrExtraction, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: fetching video metadata: %v", content.ErrExtraction, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: metadata API returned status %d", content.ErrExtraction, resp.StatusCode)
	}

	var parsed videoAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("%w: decoding metadata response: %v", content.ErrExtraction, err)
	}
	if len(parsed.Items) == 0 {
		return Result{}, fmt.Errorf("%w: no metadata for video %q", content.ErrExtraction, videoID)
	}

	snippet := parsed.Items[0].Snippet
	v.logger.Debug("fetched video metadata", "video_id", videoID, "title", snippet.Title)

	return Result{
		Title:     snippet.Title,
		Body:      fmt.Sprintf("%s\n\n%s", snippet.Description, src.URL),
		Thumbnail: bestThumbnail(snippet.Thumbnails),
	}, nil
}

// bestThumbnail picks the highest-resolution official thumbnail.
func bestThumbnail(thumbs map[string]videoThumbnail) string {
	best := ""
	bestArea := -1
	for _, t := range thumbs {
		area := t.Width * t.Height
		if area > bestArea && ValidThumbnailURL(t.URL) {
			best = t.URL
			bestArea = area
		}
	}
	return best
}
