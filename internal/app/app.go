// Package app provides application initialization and dependency wiring.
//
// App is the container holding every process-lifetime component: the Genkit
// instance, the database pool, the extractors, the coordinators. Setup builds
// it in dependency order; Close releases resources in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncbrain/syncbrain/internal/config"
	"github.com/syncbrain/syncbrain/internal/extract"
	"github.com/syncbrain/syncbrain/internal/ingest"
	"github.com/syncbrain/syncbrain/internal/search"
	"github.com/syncbrain/syncbrain/internal/share"
	"github.com/syncbrain/syncbrain/internal/vector"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool
	Index    vector.Index

	// Pipelines
	Ingest *ingest.Coordinator
	Search *search.Coordinator
	Share  *share.Service

	// Lifecycle
	renderer    extract.Renderer
	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if closer, ok := a.renderer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("closing renderer", "error", err)
		}
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
