// Package content defines the core data model shared by the ingestion and
// retrieval pipelines: content records, their source kinds, the metadata
// projected into the vector index, and the failure taxonomy every pipeline
// component reports against.
package content

import (
	"errors"
	"time"
	"unicode/utf8"
)

// Failure taxonomy. Components never log-and-swallow: they either return a
// well-formed result or an error wrapping exactly one of these sentinels,
// checked by callers with errors.Is. The HTTP layer maps them to status codes;
// raw provider errors stay server-side.
var (
	// ErrExtraction indicates a network, timeout, or parse failure while
	// fetching source material. A page that loads but contains nothing is
	// not an extraction error; it yields an empty body.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates no usable vector could be produced. Always
	// fatal to the enclosing operation; a silent zero vector would corrupt
	// similarity ranking.
	ErrEmbedding = errors.New("embedding failed")

	// ErrValidation indicates malformed caller input. Surfaced before any
	// side effect is attempted.
	ErrValidation = errors.New("invalid input")

	// ErrStore indicates a record-store or vector-index failure.
	ErrStore = errors.New("store operation failed")

	// ErrNotFound indicates the requested record or share link does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVectorWrite indicates the record was persisted but the vector
	// upsert failed afterwards. The record stays visible in listings and is
	// simply absent from semantic search until a reconcile pass re-embeds it.
	ErrVectorWrite = errors.New("vector write failed after record creation")
)

// SourceKind identifies how a piece of content entered the system and which
// extraction strategy applies to it. The set is closed: dispatch happens
// through the extractor registry, never through ad hoc branching in callers.
type SourceKind string

const (
	KindNote    SourceKind = "note"
	KindGeneric SourceKind = "url-generic"
	KindVideo   SourceKind = "url-video"
	KindSocial  SourceKind = "url-social"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case KindNote, KindGeneric, KindVideo, KindSocial:
		return true
	}
	return false
}

// Record is the durable content entity. Records are immutable once created;
// there is no update operation. Owner is never reassigned.
type Record struct {
	ID        string
	Owner     string
	Title     string
	Body      string // never null; defaults to the empty string
	Kind      SourceKind
	SourceURL string // empty for notes
	Thumbnail string // validated absolute URL, or empty
	CreatedAt time.Time
}

// Snippet returns at most n bytes of the record body without splitting a
// UTF-8 sequence, used for the denormalized metadata attached to the
// record's vector.
func (r Record) Snippet(n int) string {
	if len(r.Body) <= n {
		return r.Body
	}
	cut := r.Body[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// Fields carries the caller-independent attributes of a record about to be
// created. The record store assigns ID and CreatedAt.
type Fields struct {
	Owner     string
	Title     string
	Body      string
	Kind      SourceKind
	SourceURL string
	Thumbnail string
}

// VectorMetadata is the denormalized projection stored alongside each
// embedding so the index can filter by owner without a record-store round
// trip. It is written once at ingestion time; records are immutable, so it
// never goes stale by edit.
type VectorMetadata struct {
	Owner     string `json:"owner"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
	Snippet   string `json:"snippet"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ShareLink maps a short opaque hash to an owner. At most one link exists per
// owner at any time; links are created and deleted, never mutated.
type ShareLink struct {
	Hash      string
	Owner     string
	CreatedAt time.Time
}
