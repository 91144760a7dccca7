package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/syncbrain/syncbrain/internal/content"
)

// ErrNavigationTimeout marks a page navigation that exceeded its deadline.
// The website extractor recovers it into a placeholder result; other paths
// surface it.
var ErrNavigationTimeout = errors.New("page navigation timeout")

// Renderer fetches a URL and returns its HTML after client-side scripts have
// run. Implementations own their session lifecycle: acquire per call, release
// on every exit path.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BrowserConfig tunes rendered fetching.
type BrowserConfig struct {
	NavigationTimeoutMs int
	UserAgent           string
	BrowserPath         string // optional explicit browser binary
}

// BrowserRenderer renders pages with Playwright. The driver is a
// process-lifetime singleton; each Render call launches its own scoped
// browser session, never pooled or shared across concurrent extractions.
type BrowserRenderer struct {
	pw     *playwright.Playwright
	cfg    BrowserConfig
	logger *slog.Logger
}

// NewBrowserRenderer starts the Playwright driver. Callers should fall back
// to a static fetcher when this fails (no browser installed).
func NewBrowserRenderer(cfg BrowserConfig, logger *slog.Logger) (*BrowserRenderer, error) {
	if cfg.NavigationTimeoutMs <= 0 {
		cfg.NavigationTimeoutMs = 30000
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: starting browser driver: %v", content.ErrExtraction, err)
	}

	return &BrowserRenderer{pw: pw, cfg: cfg, logger: logger}, nil
}

// Render navigates to url in a fresh browser session and returns the
// rendered HTML. The session is released unconditionally, including on
// timeout and parse failure.
func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	}
	if b.cfg.BrowserPath != "" {
		launchOpts.ExecutablePath = playwright.String(b.cfg.BrowserPath)
	}

	browser, err := b.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return "", fmt.Errorf("%w: launching browser: %v", content.ErrExtraction, err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			b.logger.Warn("closing browser session", "error", closeErr)
		}
	}()

	pageOpts := playwright.BrowserNewPageOptions{}
	if b.cfg.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(b.cfg.UserAgent)
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		return "", fmt.Errorf("%w: opening page: %v", content.ErrExtraction, err)
	}

	// Wait for DOM content only; full load often never settles on pages
	// with long-polling scripts.
	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(b.cfg.NavigationTimeoutMs)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
		}
		return "", fmt.Errorf("%w: navigating to %s: %v", content.ErrExtraction, url, err)
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("%w: reading page content: %v", content.ErrExtraction, err)
	}

	b.logger.Debug("rendered page", "url", url, "html_length", len(html))
	return html, nil
}

// Close stops the Playwright driver.
func (b *BrowserRenderer) Close() error {
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("stopping browser driver: %w", err)
	}
	return nil
}

// isTimeout recognizes Playwright navigation timeouts. The driver reports
// them as generic errors with a "Timeout ...ms exceeded" message.
func isTimeout(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "timeout")
}
