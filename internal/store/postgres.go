package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncbrain/syncbrain/internal/content"
)

// Postgres implements Store on a pgx connection pool. It is safe for
// concurrent use; the pool is a process-lifetime singleton owned by the app.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres record store.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

const recordColumns = "id, owner_id, title, body, kind, source_url, thumbnail, created_at"

func scanRecord(row pgx.Row) (content.Record, error) {
	var r content.Record
	var kind string
	err := row.Scan(&r.ID, &r.Owner, &r.Title, &r.Body, &kind, &r.SourceURL, &r.Thumbnail, &r.CreatedAt)
	if err != nil {
		return content.Record{}, err
	}
	r.Kind = content.SourceKind(kind)
	return r, nil
}

func collectRecords(rows pgx.Rows) ([]content.Record, error) {
	defer rows.Close()

	var records []content.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Create persists a new record. The database assigns id and created_at.
func (p *Postgres) Create(ctx context.Context, f content.Fields) (content.Record, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO content (owner_id, title, body, kind, source_url, thumbnail)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+recordColumns,
		f.Owner, f.Title, f.Body, string(f.Kind), f.SourceURL, f.Thumbnail)

	r, err := scanRecord(row)
	if err != nil {
		return content.Record{}, fmt.Errorf("%w: creating record: %v", content.ErrStore, err)
	}

	p.logger.Debug("created record", "id", r.ID, "owner", r.Owner, "kind", r.Kind)
	return r, nil
}

// FindByOwner returns all of an owner's records, newest first.
func (p *Postgres) FindByOwner(ctx context.Context, owner string) ([]content.Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM content WHERE owner_id = $1 ORDER BY created_at DESC`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", content.ErrStore, err)
	}

	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning records: %v", content.ErrStore, err)
	}
	return records, nil
}

// FindByIDs returns the owner's records among ids. The owner predicate is
// applied in SQL so records of other tenants never leave the database.
func (p *Postgres) FindByIDs(ctx context.Context, owner string, ids []string) ([]content.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM content WHERE owner_id = $1 AND id = ANY($2)`,
		owner, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: finding records by id: %v", content.ErrStore, err)
	}

	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning records: %v", content.ErrStore, err)
	}
	return records, nil
}

// DeleteOne removes a record scoped by owner.
func (p *Postgres) DeleteOne(ctx context.Context, owner, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM content WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("%w: deleting record %q: %v", content.ErrStore, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: record %q", content.ErrNotFound, id)
	}

	p.logger.Debug("deleted record", "id", id, "owner", owner)
	return nil
}

// All returns a page of records across all owners, oldest first, for the
// reconciliation pass.
func (p *Postgres) All(ctx context.Context, limit, offset int) ([]content.Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM content ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: paging records: %v", content.ErrStore, err)
	}

	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning records: %v", content.ErrStore, err)
	}
	return records, nil
}

var _ Store = (*Postgres)(nil)
