package api

import (
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ownerHeader carries the caller identity, set by the authenticating proxy
// in front of this service. Requests without it are rejected on every route
// except the health probe and the public share view.
const ownerHeader = "X-User-ID"

// requireOwner extracts the caller identity or writes a 401.
func requireOwner(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "caller identity is required", logger)
		return "", false
	}
	return owner, true
}

// loggingWriter wraps http.ResponseWriter to capture status and size.
type loggingWriter struct {
	w            http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lw *loggingWriter) Header() http.Header { return lw.w.Header() }

func (lw *loggingWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.w.WriteHeader(code)
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if lw.statusCode == 0 {
		lw.statusCode = http.StatusOK
	}
	n, err := lw.w.Write(b)
	lw.bytesWritten += int64(n)
	return n, err
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (lw *loggingWriter) Unwrap() http.ResponseWriter { return lw.w }

// recoveryMiddleware recovers from handler panics so one bad request cannot
// take the server down.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic in handler",
						"panic", rec, "method", r.Method, "path", r.URL.Path)
					writeError(w, http.StatusInternalServerError,
						"internal_error", "internal server error", logger)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs one line per request with status and duration.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &loggingWriter{w: w}
			next.ServeHTTP(wrapper, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapper.statusCode,
				"bytes", wrapper.bytesWritten,
				"duration", time.Since(start),
			)
		})
	}
}

// clientKey identifies a caller for rate limiting: the forwarded identity
// when present, the remote address otherwise.
func clientKey(r *http.Request) string {
	if owner := r.Header.Get(ownerHeader); owner != "" {
		return owner
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
