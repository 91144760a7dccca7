// Package store provides the durable record store capability: a narrow
// interface over content persistence plus its PostgreSQL implementation.
//
// The interface is deliberately small — create, find, delete — and has no
// update operation: records are immutable once created.
package store

import (
	"context"

	"github.com/syncbrain/syncbrain/internal/content"
)

// Store is the capability interface over the durable content record store.
// Implementations must scope every read and delete by owner; the owner filter
// here is the first of the two tenant-isolation checks (the vector index
// metadata filter is the other).
type Store interface {
	// Create persists a new record and returns it with the store-assigned
	// id and creation timestamp.
	Create(ctx context.Context, f content.Fields) (content.Record, error)

	// FindByOwner returns all records belonging to owner, newest first.
	FindByOwner(ctx context.Context, owner string) ([]content.Record, error)

	// FindByIDs returns the records among ids that belong to owner. Ids
	// matching records of a different owner are silently dropped; a stale
	// index match must never surface another tenant's record.
	FindByIDs(ctx context.Context, owner string, ids []string) ([]content.Record, error)

	// DeleteOne removes the record with the given id if it belongs to
	// owner. Returns content.ErrNotFound when nothing was deleted.
	DeleteOne(ctx context.Context, owner, id string) error

	// All returns a page of records across all owners, oldest first.
	// Used by the reconciliation pass.
	All(ctx context.Context, limit, offset int) ([]content.Record, error)
}
