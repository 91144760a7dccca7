package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/log"
	"github.com/syncbrain/syncbrain/internal/vector"
)

type stubEmbedder struct {
	err       error
	callCount int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.callCount++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

type stubIndex struct {
	matches []vector.Match
	err     error
}

func (s *stubIndex) Upsert(_ context.Context, _ ...vector.Point) error { return nil }

func (s *stubIndex) Query(_ context.Context, _ []float32, _ string, _ int) ([]vector.Match, error) {
	return s.matches, s.err
}

func (s *stubIndex) Has(_ context.Context, _ string) (bool, error) { return false, nil }

func (s *stubIndex) DeleteOne(_ context.Context, _ string) error { return nil }

// stubStore serves a fixed record set, filtering by owner like the real one.
type stubStore struct {
	records []content.Record
}

func (s *stubStore) Create(_ context.Context, _ content.Fields) (content.Record, error) {
	return content.Record{}, errors.New("not implemented")
}

func (s *stubStore) FindByOwner(_ context.Context, owner string) ([]content.Record, error) {
	var out []content.Record
	for _, r := range s.records {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) FindByIDs(_ context.Context, owner string, ids []string) ([]content.Record, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []content.Record
	for _, r := range s.records {
		if r.Owner == owner && want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) DeleteOne(_ context.Context, _, _ string) error { return nil }

func (s *stubStore) All(_ context.Context, _, _ int) ([]content.Record, error) {
	return s.records, nil
}

type stubAnswerer struct {
	answer     string
	err        error
	callCount  int
	lastPrompt string
}

func (s *stubAnswerer) Generate(_ context.Context, prompt string) (string, error) {
	s.callCount++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func rec(id, owner, title string) content.Record {
	return content.Record{
		ID: id, Owner: owner, Title: title, Body: "body of " + title,
		Kind: content.KindNote, CreatedAt: time.Now(),
	}
}

func TestSearchRanksAndNarrowsResults(t *testing.T) {
	records := &stubStore{records: []content.Record{
		rec("a", "user-1", "first"),
		rec("b", "user-1", "second"),
		rec("c", "user-1", "third"),
	}}
	index := &stubIndex{matches: []vector.Match{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.7},
		{ID: "c", Score: 0.95},
	}}
	answerer := &stubAnswerer{answer: "here you go"}
	c := New(&stubEmbedder{}, index, records, answerer, Config{TopK: 5, KeepN: 2}, log.NewNop())

	resp, err := c.Search(context.Background(), "user-1", "what did I save?")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2 after narrowing", len(resp.Results))
	}
	if resp.Results[0].Record.ID != "c" || resp.Results[1].Record.ID != "a" {
		t.Errorf("result order = [%s %s], want [c a]",
			resp.Results[0].Record.ID, resp.Results[1].Record.ID)
	}
	if resp.Answer != "here you go" {
		t.Errorf("Answer = %q, want model output", resp.Answer)
	}
}

func TestSearchDropsForeignOwnerMatches(t *testing.T) {
	records := &stubStore{records: []content.Record{
		rec("mine", "user-1", "my note"),
		rec("theirs", "user-2", "their note"),
	}}
	// A stale index returns another tenant's id; hydration must drop it.
	index := &stubIndex{matches: []vector.Match{
		{ID: "theirs", Score: 0.99},
		{ID: "mine", Score: 0.5},
	}}
	answerer := &stubAnswerer{answer: "ok"}
	c := New(&stubEmbedder{}, index, records, answerer, Config{}, log.NewNop())

	resp, err := c.Search(context.Background(), "user-1", "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Record.ID != "mine" {
		t.Fatalf("results = %+v, want only the caller's record", resp.Results)
	}
	if strings.Contains(answerer.lastPrompt, "their note") {
		t.Error("grounding prompt leaked another tenant's record")
	}
}

func TestSearchEmptyResultsSkipsModel(t *testing.T) {
	answerer := &stubAnswerer{answer: "should not run"}
	c := New(&stubEmbedder{}, &stubIndex{}, &stubStore{}, answerer, Config{}, log.NewNop())

	resp, err := c.Search(context.Background(), "user-1", "unknown topic")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Answer != "" {
		t.Errorf("Answer = %q, want empty without candidates", resp.Answer)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("Results = %v, want empty non-nil slice", resp.Results)
	}
	if answerer.callCount != 0 {
		t.Errorf("model called %d times, want 0 without grounding candidates", answerer.callCount)
	}
}

func TestSearchValidation(t *testing.T) {
	c := New(&stubEmbedder{}, &stubIndex{}, &stubStore{}, &stubAnswerer{}, Config{}, log.NewNop())

	if _, err := c.Search(context.Background(), "", "query"); !errors.Is(err, content.ErrValidation) {
		t.Errorf("missing owner error = %v, want wrapping content.ErrValidation", err)
	}
	if _, err := c.Search(context.Background(), "user-1", "   "); !errors.Is(err, content.ErrValidation) {
		t.Errorf("blank query error = %v, want wrapping content.ErrValidation", err)
	}
}

func TestSearchEmbeddingFailureIsFatal(t *testing.T) {
	embedder := &stubEmbedder{err: content.ErrEmbedding}
	answerer := &stubAnswerer{}
	c := New(embedder, &stubIndex{}, &stubStore{}, answerer, Config{}, log.NewNop())

	_, err := c.Search(context.Background(), "user-1", "query")
	if !errors.Is(err, content.ErrEmbedding) {
		t.Errorf("Search() error = %v, want wrapping content.ErrEmbedding", err)
	}
	if answerer.callCount != 0 {
		t.Error("model called despite embedding failure")
	}
}

func TestSearchPromptGroundsOnResults(t *testing.T) {
	records := &stubStore{records: []content.Record{
		{ID: "a", Owner: "user-1", Title: "Go tips", Body: "use errgroup",
			Kind: content.KindGeneric, SourceURL: "https://example.com/go", CreatedAt: time.Now()},
	}}
	index := &stubIndex{matches: []vector.Match{{ID: "a", Score: 0.8}}}
	answerer := &stubAnswerer{answer: "ok"}
	c := New(&stubEmbedder{}, index, records, answerer, Config{}, log.NewNop())

	if _, err := c.Search(context.Background(), "user-1", "go concurrency"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	for _, want := range []string{"[Content 1]", "Go tips", "use errgroup", "https://example.com/go", `"go concurrency"`} {
		if !strings.Contains(answerer.lastPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSearchStableOrderOnScoreTies(t *testing.T) {
	records := &stubStore{records: []content.Record{
		rec("a", "user-1", "first"),
		rec("b", "user-1", "second"),
	}}
	index := &stubIndex{matches: []vector.Match{
		{ID: "a", Score: 0.5},
		{ID: "b", Score: 0.5},
	}}
	c := New(&stubEmbedder{}, index, records, &stubAnswerer{answer: "ok"}, Config{}, log.NewNop())

	resp, err := c.Search(context.Background(), "user-1", "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Results[0].Record.ID != "a" || resp.Results[1].Record.ID != "b" {
		t.Errorf("tie order = [%s %s], want index order preserved",
			resp.Results[0].Record.ID, resp.Results[1].Record.ID)
	}
}

func TestExcerptMarksTruncation(t *testing.T) {
	if got := excerpt("short", 100); got != "short" {
		t.Errorf("excerpt under limit = %q, want unchanged", got)
	}
	got := excerpt(strings.Repeat("a", 50), 10)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("excerpt = %q, want ellipsis marker", got)
	}
	if len(got) != 10+len("…") {
		t.Errorf("excerpt length = %d, want 10 plus marker", len(got))
	}
}

func TestExcerptPreservesUTF8(t *testing.T) {
	// A cut at 2 bytes lands inside the two-byte é; the excerpt must back up
	// to the rune boundary before appending the marker.
	if got := excerpt("héllo", 2); got != "h…" {
		t.Errorf("excerpt(%q, 2) = %q, want %q", "héllo", got, "h…")
	}
}
