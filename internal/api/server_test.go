package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/extract"
	"github.com/syncbrain/syncbrain/internal/log"
	"github.com/syncbrain/syncbrain/internal/search"
)

// fakeIngest implements IngestService.
type fakeIngest struct {
	rec       content.Record
	err       error
	records   []content.Record
	deleteErr error
	lastOwner string
	lastSrc   extract.Source
}

func (f *fakeIngest) Ingest(_ context.Context, owner string, src extract.Source) (content.Record, error) {
	f.lastOwner = owner
	f.lastSrc = src
	return f.rec, f.err
}

func (f *fakeIngest) List(_ context.Context, _ string) ([]content.Record, error) {
	return f.records, nil
}

func (f *fakeIngest) Delete(_ context.Context, _, _ string) error {
	return f.deleteErr
}

// fakeSearch implements SearchService.
type fakeSearch struct {
	resp search.Response
	err  error
}

func (f *fakeSearch) Search(_ context.Context, _, _ string) (search.Response, error) {
	return f.resp, f.err
}

// fakeShare implements ShareService.
type fakeShare struct {
	hash    string
	err     error
	owner   string
	records []content.Record
}

func (f *fakeShare) Toggle(_ context.Context, _ string, _ bool) (string, error) {
	return f.hash, f.err
}

func (f *fakeShare) Resolve(_ context.Context, _ string) (string, []content.Record, error) {
	return f.owner, f.records, f.err
}

func newTestServer(deps Deps) http.Handler {
	if deps.Ingest == nil {
		deps.Ingest = &fakeIngest{}
	}
	if deps.Search == nil {
		deps.Search = &fakeSearch{}
	}
	if deps.Share == nil {
		deps.Share = &fakeShare{}
	}
	return NewServer(deps, Config{RateLimit: 1000, RateBurst: 1000}, log.NewNop()).Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doRequest(t, newTestServer(Deps{}), http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMissingIdentityIsRejected(t *testing.T) {
	h := newTestServer(Deps{})
	paths := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/v1/content"},
		{http.MethodGet, "/api/v1/content"},
		{http.MethodDelete, "/api/v1/content/abc"},
		{http.MethodPost, "/api/v1/search"},
		{http.MethodPost, "/api/v1/share"},
	}
	for _, p := range paths {
		w := doRequest(t, h, p.method, p.path, "", `{}`)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestCreateContent(t *testing.T) {
	ingest := &fakeIngest{rec: content.Record{
		ID: "rec-1", Owner: "user-1", Title: "Note", Body: "text",
		Kind: content.KindNote, CreatedAt: time.Now(),
	}}
	h := newTestServer(Deps{Ingest: ingest})

	w := doRequest(t, h, http.MethodPost, "/api/v1/content", "user-1",
		`{"type":"note","title":"Note","body":"text"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}

	var resp createResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Indexed {
		t.Error("indexed = false, want true")
	}
	if resp.ID != "rec-1" {
		t.Errorf("id = %q, want rec-1", resp.ID)
	}
	if ingest.lastOwner != "user-1" {
		t.Errorf("service owner = %q, want header identity", ingest.lastOwner)
	}
	if ingest.lastSrc.Kind != content.KindNote {
		t.Errorf("source kind = %q, want note", ingest.lastSrc.Kind)
	}
}

func TestCreateContentPartialIndexing(t *testing.T) {
	ingest := &fakeIngest{
		rec: content.Record{ID: "rec-1", Owner: "user-1", Kind: content.KindNote, CreatedAt: time.Now()},
		err: fmt.Errorf("%w: embed failed", content.ErrVectorWrite),
	}
	h := newTestServer(Deps{Ingest: ingest})

	w := doRequest(t, h, http.MethodPost, "/api/v1/content", "user-1", `{"type":"note","body":"x"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 for partial ingestion", w.Code)
	}

	var resp createResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Indexed {
		t.Error("indexed = true, want false when the vector write failed")
	}
	if resp.ID != "rec-1" {
		t.Errorf("id = %q, want the created record", resp.ID)
	}
}

func TestCreateContentErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: bad kind", content.ErrValidation), http.StatusBadRequest},
		{"extraction", fmt.Errorf("%w: fetch failed", content.ErrExtraction), http.StatusBadGateway},
		{"embedding", fmt.Errorf("%w: no vector", content.ErrEmbedding), http.StatusBadGateway},
		{"store", fmt.Errorf("%w: db down", content.ErrStore), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(Deps{Ingest: &fakeIngest{err: tt.err}})
			w := doRequest(t, h, http.MethodPost, "/api/v1/content", "user-1", `{"type":"note"}`)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCreateContentMalformedJSON(t *testing.T) {
	h := newTestServer(Deps{})
	w := doRequest(t, h, http.MethodPost, "/api/v1/content", "user-1", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListContent(t *testing.T) {
	ingest := &fakeIngest{records: []content.Record{
		{ID: "a", Owner: "user-1", Title: "one", Kind: content.KindNote, CreatedAt: time.Now()},
		{ID: "b", Owner: "user-1", Title: "two", Kind: content.KindGeneric, CreatedAt: time.Now()},
	}}
	h := newTestServer(Deps{Ingest: ingest})

	w := doRequest(t, h, http.MethodGet, "/api/v1/content", "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string][]recordResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp["items"]) != 2 {
		t.Errorf("items = %d, want 2", len(resp["items"]))
	}
}

func TestDeleteContent(t *testing.T) {
	h := newTestServer(Deps{Ingest: &fakeIngest{}})
	w := doRequest(t, h, http.MethodDelete, "/api/v1/content/rec-1", "user-1", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}

	h = newTestServer(Deps{Ingest: &fakeIngest{
		deleteErr: fmt.Errorf("%w: record", content.ErrNotFound),
	}})
	w = doRequest(t, h, http.MethodDelete, "/api/v1/content/missing", "user-1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := &fakeSearch{resp: search.Response{
		Answer: "found it",
		Results: []search.Result{{
			Record: content.Record{ID: "a", Owner: "user-1", Title: "hit", CreatedAt: time.Now()},
			Score:  0.9,
		}},
	}}
	h := newTestServer(Deps{Search: svc})

	w := doRequest(t, h, http.MethodPost, "/api/v1/search", "user-1", `{"query":"go"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "found it" {
		t.Errorf("answer = %q, want model output", resp.Answer)
	}
	if len(resp.Results) != 1 || resp.Results[0].Score != 0.9 {
		t.Errorf("results = %+v, want one scored hit", resp.Results)
	}
}

func TestSearchEmptyResultsGetFriendlyAnswer(t *testing.T) {
	h := newTestServer(Deps{Search: &fakeSearch{resp: search.Response{Results: []search.Result{}}}})

	w := doRequest(t, h, http.MethodPost, "/api/v1/search", "user-1", `{"query":"nothing"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer == "" {
		t.Error("answer is empty, want a friendly no-results message")
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v, want empty", resp.Results)
	}
}

func TestShareToggle(t *testing.T) {
	h := newTestServer(Deps{Share: &fakeShare{hash: "abc123def456ghi"}})

	w := doRequest(t, h, http.MethodPost, "/api/v1/share", "user-1", `{"enabled":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp toggleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Enabled || resp.Hash != "abc123def456ghi" {
		t.Errorf("response = %+v, want enabled with hash", resp)
	}
}

func TestShareResolveIsPublic(t *testing.T) {
	h := newTestServer(Deps{Share: &fakeShare{
		owner: "user-1",
		records: []content.Record{
			{ID: "a", Owner: "user-1", Title: "shared", CreatedAt: time.Now()},
		},
	}})

	// No identity header: hash possession is the credential.
	w := doRequest(t, h, http.MethodGet, "/api/v1/share/abc123def456ghi", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without identity header", w.Code)
	}

	var resp shareViewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("items = %d, want 1", len(resp.Items))
	}
}

func TestShareResolveUnknownHash(t *testing.T) {
	h := newTestServer(Deps{Share: &fakeShare{
		err: fmt.Errorf("%w: share link", content.ErrNotFound),
	}})
	w := doRequest(t, h, http.MethodGet, "/api/v1/share/unknown", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	h := NewServer(Deps{
		Ingest: &fakeIngest{},
		Search: &fakeSearch{},
		Share:  &fakeShare{},
	}, Config{RateLimit: 1, RateBurst: 1}, log.NewNop()).Handler()

	first := doRequest(t, h, http.MethodGet, "/health", "user-1", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}
	second := doRequest(t, h, http.MethodGet, "/health", "user-1", "")
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", second.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	})
	h := chain(mux, recoveryMiddleware(log.NewNop()))

	w := doRequest(t, h, http.MethodGet, "/boom", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 after panic", w.Code)
	}
}
