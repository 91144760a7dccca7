package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/syncbrain/syncbrain/internal/content"
)

// writeJSON writes a JSON response with the given status code. Buffer-first
// so headers are only sent after successful encoding.
func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("writing response body", "error", err)
	}
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}}, logger)
}

// writeDomainError maps the failure taxonomy to status codes. Raw provider
// errors never reach the client; the caller gets a stable code plus a
// generic message.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, content.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid input", logger)
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found", logger)
	case errors.Is(err, content.ErrExtraction):
		writeError(w, http.StatusBadGateway, "extraction_failed", "could not fetch source content", logger)
	case errors.Is(err, content.ErrEmbedding):
		writeError(w, http.StatusBadGateway, "embedding_failed", "could not process content", logger)
	default:
		writeError(w, http.StatusInternalServerError, "operation_failed", "operation failed", logger)
	}
}
