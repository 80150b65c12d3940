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

const subscriberColumns = `
	id, chat_id, username, digest_time, timezone,
	include_tech_updates, include_industry_reports, relevance_prompt, created_at`

// UpsertSubscriber registers or refreshes a subscriber by chat id.
func (db *DB) UpsertSubscriber(ctx context.Context, sub *domain.Subscriber) (string, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO subscribers (chat_id, username, digest_time, timezone, include_tech_updates, include_industry_reports, relevance_prompt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chat_id) DO UPDATE SET
			username = EXCLUDED.username,
			digest_time = EXCLUDED.digest_time,
			timezone = EXCLUDED.timezone,
			include_tech_updates = EXCLUDED.include_tech_updates,
			include_industry_reports = EXCLUDED.include_industry_reports,
			relevance_prompt = EXCLUDED.relevance_prompt
		RETURNING id
	`, sub.ChatID, sub.Username, sub.DigestTime, sub.Timezone, sub.IncludeTechUpdates, sub.IncludeIndustryReports, toText(sub.RelevancePrompt))

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("upsert subscriber: %w", err)
	}

	return fromUUID(id), nil
}

// GetSubscriber fetches one subscriber by id.
func (db *DB) GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE id = $1`, toUUID(id))

	sub, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrSubscriberNotFound
		}

		return nil, err
	}

	return sub, nil
}

// ListSubscribers returns all subscribers.
func (db *DB) ListSubscribers(ctx context.Context) ([]*domain.Subscriber, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	return collectSubscribers(rows)
}

// ListSubscribersForSources returns the union of subscribers following
// any of the given sources.
func (db *DB) ListSubscribersForSources(ctx context.Context, sourceIDs []string) ([]*domain.Subscriber, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT `+subscriberColumns+`
		FROM subscribers s
		JOIN subscriber_sources ss ON ss.subscriber_id = s.id
		WHERE ss.source_id = ANY($1)
	`, uuidArray(sourceIDs))
	if err != nil {
		return nil, fmt.Errorf("list subscribers for sources: %w", err)
	}
	defer rows.Close()

	return collectSubscribers(rows)
}

// Subscribe links a subscriber to a source.
func (db *DB) Subscribe(ctx context.Context, subscriberID, sourceID string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO subscriber_sources (subscriber_id, source_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, toUUID(subscriberID), toUUID(sourceID)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

// Unsubscribe removes the subscriber-source link.
func (db *DB) Unsubscribe(ctx context.Context, subscriberID, sourceID string) error {
	if _, err := db.Pool.Exec(ctx, `
		DELETE FROM subscriber_sources WHERE subscriber_id = $1 AND source_id = $2
	`, toUUID(subscriberID), toUUID(sourceID)); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	return nil
}

func collectSubscribers(rows pgx.Rows) ([]*domain.Subscriber, error) {
	var subs []*domain.Subscriber

	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}

		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func scanSubscriber(row pgx.Row) (*domain.Subscriber, error) {
	var (
		sub       domain.Subscriber
		id        pgtype.UUID
		prompt    pgtype.Text
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(
		&id, &sub.ChatID, &sub.Username, &sub.DigestTime, &sub.Timezone,
		&sub.IncludeTechUpdates, &sub.IncludeIndustryReports, &prompt, &createdAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("scan subscriber: %w", err)
	}

	sub.ID = fromUUID(id)
	sub.RelevancePrompt = fromText(prompt)
	sub.CreatedAt = fromTimestamptz(createdAt)

	return &sub, nil
}
