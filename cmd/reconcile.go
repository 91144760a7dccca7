package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/syncbrain/syncbrain/internal/app"
	"github.com/syncbrain/syncbrain/internal/config"
)

// runReconcile re-embeds every record missing from the vector index. A file
// lock guarantees a single reconcile instance per host: two concurrent passes
// would race on the same records and double-bill the embedding API.
func runReconcile(cfg *config.Config, logger *slog.Logger) error {
	lockPath := filepath.Join(os.TempDir(), "syncbrain-reconcile.lock")
	lock := flock.New(lockPath)

	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring reconcile lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another reconcile run holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("releasing reconcile lock", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	repaired, err := a.Ingest.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconciling vector index (repaired %d): %w", repaired, err)
	}

	logger.Info("reconcile complete", "repaired", repaired)
	fmt.Printf("Reconcile complete: %d record(s) re-indexed.\n", repaired)
	return nil
}
