package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
)

// UpsertSource registers an ingestion origin, updating the title on
// repeat registration.
func (db *DB) UpsertSource(ctx context.Context, kind, identifier, title string) (string, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO sources (kind, identifier, title)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, identifier) DO UPDATE SET title = EXCLUDED.title
		RETURNING id
	`, kind, identifier, sanitizeUTF8(title))

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("upsert source: %w", err)
	}

	return fromUUID(id), nil
}

// GetSource fetches one source by id.
func (db *DB) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, kind, identifier, title, created_at FROM sources WHERE id = $1
	`, toUUID(id))

	var (
		src       domain.Source
		sid       pgtype.UUID
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&sid, &src.Kind, &src.Identifier, &src.Title, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrNotFound
		}

		return nil, fmt.Errorf("get source: %w", err)
	}

	src.ID = fromUUID(sid)
	src.CreatedAt = fromTimestamptz(createdAt)

	return &src, nil
}

// ListSources returns all registered sources.
func (db *DB) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, kind, identifier, title, created_at FROM sources ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source

	for rows.Next() {
		var (
			src       domain.Source
			sid       pgtype.UUID
			createdAt pgtype.Timestamptz
		)

		if err := rows.Scan(&sid, &src.Kind, &src.Identifier, &src.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		src.ID = fromUUID(sid)
		src.CreatedAt = fromTimestamptz(createdAt)

		sources = append(sources, src)
	}

	return sources, rows.Err()
}
