// Package cmd routes the CLI surface: serve, reconcile, version, help.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/syncbrain/syncbrain/internal/config"
	"github.com/syncbrain/syncbrain/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.0.1"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point. Special flags are handled before full
// initialization so version and help work even with invalid config.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := initLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		return runServe(cfg, logger)
	case "reconcile":
		return runReconcile(cfg, logger)
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// initLogger builds the structured logger from config; the DEBUG environment
// variable overrides the configured level.
func initLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersionInfo() error {
	fmt.Printf("syncbrain v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println("syncbrain - personal knowledge store with semantic search")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  syncbrain serve        Start the HTTP API server (default)")
	fmt.Println("  syncbrain reconcile    Re-index records missing from the vector index")
	fmt.Println("  syncbrain version      Show version information")
	fmt.Println("  syncbrain help         Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  DATABASE_URL           Optional: PostgreSQL connection URL")
	fmt.Println("  SYNCBRAIN_*            Optional: config overrides (see config.yaml)")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}
