// Package api exposes the core pipeline over HTTP.
//
// The surface is deliberately thin: handlers validate transport-level input,
// call the coordinators, and map the typed error kinds to status codes.
// Credential issuance lives upstream; the authenticating proxy forwards the
// caller identity in the X-User-ID header.
//
// File structure:
//   - server.go: route registration and timeouts
//   - middleware.go: recovery, request logging, owner identity
//   - ratelimit.go: per-client rate limiting
//   - response.go: JSON response helpers and error mapping
//   - content.go: ingest / list / delete endpoints
//   - search.go: semantic search endpoint
//   - share.go: share toggle and public share view
package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Server timeout configuration, applied by the cmd layer when it builds the
// http.Server around Handler().
const (
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 2 * time.Minute // ingestion renders pages inline
	IdleTimeout       = 2 * time.Minute
	ShutdownTimeout   = 30 * time.Second
)

// Server is the HTTP server for the content API.
type Server struct {
	mux     *http.ServeMux
	limiter *rateLimiter
	logger  *slog.Logger
}

// Deps bundles the coordinators the handlers call.
type Deps struct {
	Ingest IngestService
	Search SearchService
	Share  ShareService
}

// Config tunes the transport layer.
type Config struct {
	RateLimit float64 // requests per second per client
	RateBurst int
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		limiter: newRateLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:  logger,
	}

	ch := &contentHandler{svc: deps.Ingest, logger: logger}
	sh := &searchHandler{svc: deps.Search, logger: logger}
	rh := &shareHandler{svc: deps.Share, logger: logger}

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/v1/content", ch.create)
	mux.HandleFunc("GET /api/v1/content", ch.list)
	mux.HandleFunc("DELETE /api/v1/content/{id}", ch.delete)
	mux.HandleFunc("POST /api/v1/search", sh.search)
	mux.HandleFunc("POST /api/v1/share", rh.toggle)
	mux.HandleFunc("GET /api/v1/share/{hash}", rh.resolve)

	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery → logging → rate limit → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		s.limiter.middleware(s.logger),
	)
}

// health is the liveness probe.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// chain applies middleware in reverse order so the first listed runs first.
func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
