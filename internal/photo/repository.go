package photo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const photoColumns = `id, original_url, thumbnail_url, original_key, thumbnail_key, width, height, created_at`

// Querier is the part of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores photo records in PostgreSQL.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository creates a PostgresRepository with the given connection pool.
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts p and scans back the generated id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, p *Photo) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO photos (original_url, thumbnail_url, original_key, thumbnail_key, width, height)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		p.OriginalURL, p.ThumbnailURL, p.OriginalKey, p.ThumbnailKey, p.Width, p.Height,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// List returns all photos ordered by creation time, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Photo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+photoColumns+` FROM photos ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	photos, err := pgx.CollectRows(rows, scanPhoto)
	if err != nil {
		return nil, fmt.Errorf("scan photos: %w", err)
	}
	return photos, nil
}

// GetByID fetches a photo by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Photo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get photo by id: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPhoto)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo by id: %w", err)
	}
	return &p, nil
}

// Delete removes the photo row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPhoto(row pgx.CollectableRow) (Photo, error) {
	var p Photo
	err := row.Scan(&p.ID, &p.OriginalURL, &p.ThumbnailURL, &p.OriginalKey, &p.ThumbnailKey,
		&p.Width, &p.Height, &p.CreatedAt)
	return p, err
}
