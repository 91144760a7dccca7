package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/extract"
)

// IngestService is what the content endpoints need from the ingestion
// coordinator. *ingest.Coordinator satisfies it.
type IngestService interface {
	Ingest(ctx context.Context, owner string, src extract.Source) (content.Record, error)
	List(ctx context.Context, owner string) ([]content.Record, error)
	Delete(ctx context.Context, owner, id string) error
}

type contentHandler struct {
	svc    IngestService
	logger *slog.Logger
}

// createRequest is the ingestion payload. Type selects the extraction
// strategy; title and body override whatever extraction produces.
type createRequest struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// recordResponse is the wire form of a content record.
type recordResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toRecordResponse(rec content.Record) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		Body:      rec.Body,
		Type:      string(rec.Kind),
		URL:       rec.SourceURL,
		Thumbnail: rec.Thumbnail,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

type createResponse struct {
	recordResponse
	Indexed bool `json:"indexed"`
}

func (h *contentHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	rec, err := h.svc.Ingest(r.Context(), owner, extract.Source{
		Kind:  content.SourceKind(req.Type),
		URL:   req.URL,
		Title: req.Title,
		Body:  req.Body,
	})
	if errors.Is(err, content.ErrVectorWrite) {
		// The record exists but missed the index. Still a creation from the
		// caller's perspective; indexed:false signals degraded searchability.
		writeJSON(w, http.StatusCreated,
			createResponse{recordResponse: toRecordResponse(rec), Indexed: false}, h.logger)
		return
	}
	if err != nil {
		h.logger.Error("ingesting content", "owner", owner, "error", err)
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated,
		createResponse{recordResponse: toRecordResponse(rec), Indexed: true}, h.logger)
}

func (h *contentHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	records, err := h.svc.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("listing content", "owner", owner, "error", err)
		writeDomainError(w, err, h.logger)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string][]recordResponse{"items": out}, h.logger)
}

func (h *contentHandler) delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), owner, id); err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			h.logger.Error("deleting content", "owner", owner, "id", id, "error", err)
		}
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
