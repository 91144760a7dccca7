package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/syncbrain/syncbrain/internal/content"
)

// ShareService is what the share endpoints need. *share.Service satisfies it.
type ShareService interface {
	Toggle(ctx context.Context, owner string, enabled bool) (string, error)
	Resolve(ctx context.Context, hash string) (string, []content.Record, error)
}

type shareHandler struct {
	svc    ShareService
	logger *slog.Logger
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type toggleResponse struct {
	Enabled bool   `json:"enabled"`
	Hash    string `json:"hash,omitempty"`
}

func (h *shareHandler) toggle(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	hash, err := h.svc.Toggle(r.Context(), owner, req.Enabled)
	if err != nil {
		h.logger.Error("toggling share", "owner", owner, "error", err)
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Enabled: req.Enabled, Hash: hash}, h.logger)
}

type shareViewResponse struct {
	Items []recordResponse `json:"items"`
}

// resolve serves the public read-only view. It is the one authenticated-less
// route besides the health probe: possession of the hash is the credential.
func (h *shareHandler) resolve(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	_, records, err := h.svc.Resolve(r.Context(), hash)
	if err != nil {
		if !errors.Is(err, content.ErrNotFound) && !errors.Is(err, content.ErrValidation) {
			h.logger.Error("resolving share link", "error", err)
		}
		writeDomainError(w, err, h.logger)
		return
	}

	out := shareViewResponse{Items: make([]recordResponse, 0, len(records))}
	for _, rec := range records {
		out.Items = append(out.Items, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out, h.logger)
}
