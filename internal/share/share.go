// Package share manages share links: short opaque hashes that expose an
// owner's saved content read-only. At most one link exists per owner at any
// time; toggling share on twice returns the same hash.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/syncbrain/syncbrain/internal/content"
	"github.com/syncbrain/syncbrain/internal/store"
)

// hashLength is the number of characters kept from a v4 UUID string. Long
// enough to be unguessable in practice, short enough for a link people
// actually paste.
const hashLength = 15

// Links is the capability interface over share-link persistence.
type Links interface {
	// FindByOwner returns the owner's link, or content.ErrNotFound.
	FindByOwner(ctx context.Context, owner string) (content.ShareLink, error)

	// FindByHash returns the link for hash, or content.ErrNotFound.
	FindByHash(ctx context.Context, hash string) (content.ShareLink, error)

	// Create persists a new link.
	Create(ctx context.Context, link content.ShareLink) error

	// DeleteByOwner removes the owner's link if one exists. Deleting a
	// missing link is not an error: toggling share off is idempotent.
	DeleteByOwner(ctx context.Context, owner string) error
}

// Service coordinates share toggling and resolution.
type Service struct {
	links   Links
	records store.Store
	logger  *slog.Logger
}

// New creates a Service.
func New(links Links, records store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{links: links, records: records, logger: logger}
}

// Toggle enables or disables sharing for owner. Enabling returns the hash;
// if a link already exists its hash is returned instead of creating a
// duplicate. Disabling returns an empty hash.
func (s *Service) Toggle(ctx context.Context, owner string, enabled bool) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("%w: owner is required", content.ErrValidation)
	}

	if !enabled {
		if err := s.links.DeleteByOwner(ctx, owner); err != nil {
			return "", err
		}
		s.logger.Info("share disabled", "owner", owner)
		return "", nil
	}

	existing, err := s.links.FindByOwner(ctx, owner)
	if err == nil {
		return existing.Hash, nil
	}
	if !isNotFound(err) {
		return "", err
	}

	link := content.ShareLink{
		Hash:  uuid.NewString()[:hashLength],
		Owner: owner,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return "", err
	}

	s.logger.Info("share enabled", "owner", owner)
	return link.Hash, nil
}

// Resolve maps a share hash to its owner and that owner's records. An
// unknown or revoked hash yields content.ErrNotFound.
func (s *Service) Resolve(ctx context.Context, hash string) (string, []content.Record, error) {
	if hash == "" {
		return "", nil, fmt.Errorf("%w: hash is required", content.ErrValidation)
	}

	link, err := s.links.FindByHash(ctx, hash)
	if err != nil {
		return "", nil, err
	}

	records, err := s.records.FindByOwner(ctx, link.Owner)
	if err != nil {
		return "", nil, err
	}
	return link.Owner, records, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, content.ErrNotFound)
}
