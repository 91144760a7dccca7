package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/syncbrain/syncbrain/internal/content"
)

// StaticConfig tunes the static-fetch collector.
type StaticConfig struct {
	TimeoutMs   int
	Parallelism int
	DelayMs     int
	UserAgent   string
}

// StaticFetcher implements Renderer without a browser: it fetches raw HTML
// over HTTP. Client-side-rendered pages come back mostly empty this way, so
// it is only the degraded path used when no browser is available at startup.
type StaticFetcher struct {
	cfg    StaticConfig
	logger *slog.Logger
}

// NewStaticFetcher creates a StaticFetcher.
func NewStaticFetcher(cfg StaticConfig, logger *slog.Logger) *StaticFetcher {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 30000
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticFetcher{cfg: cfg, logger: logger}
}

// Render fetches the raw HTML of url. A fresh collector per call keeps the
// session scoped the same way browser sessions are.
func (s *StaticFetcher) Render(ctx context.Context, url string) (string, error) {
	opts := []colly.CollectorOption{colly.MaxDepth(1)}
	if s.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(s.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(time.Duration(s.cfg.TimeoutMs) * time.Millisecond)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.cfg.Parallelism,
		Delay:       time.Duration(s.cfg.DelayMs) * time.Millisecond,
	}); err != nil {
		return "", fmt.Errorf("%w: configuring fetch limits: %v", content.ErrExtraction, err)
	}

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", content.ErrExtraction, url, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", content.ErrExtraction, url, err)
	}

	s.logger.Debug("fetched static page", "url", url, "html_length", len(body))
	return string(body), nil
}
