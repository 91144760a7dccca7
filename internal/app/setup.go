package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/syncbrain/syncbrain/db"
	"github.com/syncbrain/syncbrain/internal/config"
	"github.com/syncbrain/syncbrain/internal/embed"
	"github.com/syncbrain/syncbrain/internal/extract"
	"github.com/syncbrain/syncbrain/internal/ingest"
	"github.com/syncbrain/syncbrain/internal/llm"
	"github.com/syncbrain/syncbrain/internal/search"
	"github.com/syncbrain/syncbrain/internal/share"
	"github.com/syncbrain/syncbrain/internal/store"
	"github.com/syncbrain/syncbrain/internal/vector"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	index, err := provideIndex(ctx, cfg, pool, logger)
	if err != nil {
		return nil, err
	}
	a.Index = index

	records := store.NewPostgres(pool, logger)
	generator := llm.New(g, cfg.ModelName)
	embedGen := embed.New(embedder, generator, embed.Config{
		MaxDirectChars:    cfg.Embedding.MaxDirectChars,
		SummaryInputChars: cfg.Embedding.SummaryInputChars,
		Dimension:         cfg.Vector.Dimension,
	}, logger)

	a.renderer = provideRenderer(cfg, logger)
	video := extract.NewVideo(extract.VideoConfig{
		APIKey:    cfg.Video.APIKey,
		TimeoutMs: cfg.Video.TimeoutMs,
		RateLimit: cfg.Video.RateLimit,
	}, logger)
	registry := extract.NewRegistry(a.renderer, video, logger)

	a.Ingest = ingest.New(registry, embedGen, records, index,
		ingest.Config{SnippetChars: cfg.Search.SnippetChars}, logger)
	a.Search = search.New(embedGen, index, records, generator, search.Config{
		TopK:         cfg.Search.TopK,
		KeepN:        cfg.Search.KeepN,
		ExcerptChars: cfg.Search.ExcerptChars,
	}, logger)
	a.Share = share.New(share.NewPostgresLinks(pool), records, logger)

	return a, nil
}

// provideOtelShutdown wires OTLP trace export to a local collector agent
// before Genkit initialization so the TracerProvider is ready when flows
// start. Tracing is disabled when no agent host is configured.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	ot := cfg.Otel
	if ot.AgentHost == "" {
		return func() {}
	}

	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if ot.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", ot.ServiceName)
	}
	if ot.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+ot.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(ot.AgentHost),
		otlptracehttp.WithInsecure(), // local agent, no TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"agent", ot.AgentHost,
		"service", ot.ServiceName,
		"environment", ot.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the Google AI plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	logger.Info("initialized Genkit", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return g, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideIndex selects the vector index backend. pgvector shares the record
// store's pool; qdrant runs as a separate service.
func provideIndex(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (vector.Index, error) {
	switch cfg.Vector.Provider {
	case config.VectorQdrant:
		return vector.NewQdrant(ctx, vector.QdrantConfig{
			Host:       cfg.Vector.QdrantHost,
			Port:       cfg.Vector.QdrantPort,
			Collection: cfg.Vector.QdrantCollection,
			Dimension:  cfg.Vector.Dimension,
			UseTLS:     cfg.Vector.QdrantTLS,
		}, logger)
	case config.VectorPgvector:
		return vector.NewPgvector(pool, logger), nil
	default:
		return nil, fmt.Errorf("unknown vector provider %q", cfg.Vector.Provider)
	}
}

// provideRenderer prefers the headless browser; when the Playwright driver is
// unavailable it falls back to static HTML fetching, which handles
// server-rendered pages but returns mostly empty bodies for client-rendered
// ones.
func provideRenderer(cfg *config.Config, logger *slog.Logger) extract.Renderer {
	browser, err := extract.NewBrowserRenderer(extract.BrowserConfig{
		NavigationTimeoutMs: cfg.Scraper.NavigationTimeoutMs,
		UserAgent:           cfg.Scraper.UserAgent,
		BrowserPath:         cfg.Scraper.BrowserPath,
	}, logger)
	if err == nil {
		return browser
	}

	logger.Warn("browser renderer unavailable, falling back to static fetching", "error", err)
	return extract.NewStaticFetcher(extract.StaticConfig{
		TimeoutMs:   cfg.Scraper.NavigationTimeoutMs,
		Parallelism: cfg.Scraper.Parallelism,
		DelayMs:     cfg.Scraper.DelayMs,
		UserAgent:   cfg.Scraper.UserAgent,
	}, logger)
}
