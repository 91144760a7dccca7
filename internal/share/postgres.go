package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncbrain/syncbrain/internal/content"
)

// PostgresLinks implements Links on the share_links table. The UNIQUE
// constraint on owner_id backs the one-link-per-owner invariant even under
// concurrent toggles.
type PostgresLinks struct {
	pool *pgxpool.Pool
}

// NewPostgresLinks creates a PostgresLinks.
func NewPostgresLinks(pool *pgxpool.Pool) *PostgresLinks {
	return &PostgresLinks{pool: pool}
}

func (p *PostgresLinks) FindByOwner(ctx context.Context, owner string) (content.ShareLink, error) {
	return p.findOne(ctx,
		`SELECT hash, owner_id, created_at FROM share_links WHERE owner_id = $1`, owner)
}

func (p *PostgresLinks) FindByHash(ctx context.Context, hash string) (content.ShareLink, error) {
	return p.findOne(ctx,
		`SELECT hash, owner_id, created_at FROM share_links WHERE hash = $1`, hash)
}

func (p *PostgresLinks) findOne(ctx context.Context, query, arg string) (content.ShareLink, error) {
	var link content.ShareLink
	err := p.pool.QueryRow(ctx, query, arg).Scan(&link.Hash, &link.Owner, &link.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return content.ShareLink{}, fmt.Errorf("%w: share link", content.ErrNotFound)
	}
	if err != nil {
		return content.ShareLink{}, fmt.Errorf("%w: finding share link: %v", content.ErrStore, err)
	}
	return link, nil
}

func (p *PostgresLinks) Create(ctx context.Context, link content.ShareLink) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO share_links (hash, owner_id) VALUES ($1, $2)`, link.Hash, link.Owner)
	if err != nil {
		return fmt.Errorf("%w: creating share link: %v", content.ErrStore, err)
	}
	return nil
}

func (p *PostgresLinks) DeleteByOwner(ctx context.Context, owner string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM share_links WHERE owner_id = $1`, owner); err != nil {
		return fmt.Errorf("%w: deleting share link: %v", content.ErrStore, err)
	}
	return nil
}

var _ Links = (*PostgresLinks)(nil)
