package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/syncbrain/syncbrain/internal/search"
)

// SearchService is what the search endpoint needs from the retrieval
// coordinator. *search.Coordinator satisfies it.
type SearchService interface {
	Search(ctx context.Context, owner, query string) (search.Response, error)
}

type searchHandler struct {
	svc    SearchService
	logger *slog.Logger
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResult struct {
	recordResponse
	Score float64 `json:"score"`
}

type searchResponse struct {
	Answer  string         `json:"answer"`
	Results []searchResult `json:"results"`
}

func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	resp, err := h.svc.Search(r.Context(), owner, req.Query)
	if err != nil {
		h.logger.Error("searching content", "owner", owner, "error", err)
		writeDomainError(w, err, h.logger)
		return
	}

	out := searchResponse{
		Answer:  resp.Answer,
		Results: make([]searchResult, 0, len(resp.Results)),
	}
	if len(resp.Results) == 0 {
		out.Answer = "I couldn't find anything relevant in your saved content."
	}
	for _, res := range resp.Results {
		out.Results = append(out.Results, searchResult{
			recordResponse: toRecordResponse(res.Record),
			Score:          res.Score,
		})
	}
	writeJSON(w, http.StatusOK, out, h.logger)
}
