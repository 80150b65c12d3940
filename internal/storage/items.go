package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
)

// CreateItem inserts a new raw item. Returns ErrDuplicateItem when the
// (source, external id) pair already exists.
func (db *DB) CreateItem(ctx context.Context, item *domain.Item) (string, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO items (source_id, external_id, content, engagement, published_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, toUUID(item.SourceID), item.ExternalID, sanitizeUTF8(item.Content), toInt4(item.Engagement), toTimestamptz(item.PublishedAt))

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return "", coreerrors.ErrDuplicateItem
		}

		return "", fmt.Errorf("create item: %w", err)
	}

	return fromUUID(id), nil
}

// UpdateItemEngagement refreshes engagement for an already-seen item.
func (db *DB) UpdateItemEngagement(ctx context.Context, sourceID, externalID string, engagement int) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE items SET engagement = GREATEST(engagement, $3)
		WHERE source_id = $1 AND external_id = $2
	`, toUUID(sourceID), externalID, toInt4(engagement)); err != nil {
		return fmt.Errorf("update item engagement: %w", err)
	}

	return nil
}

// CountPendingItems returns the number of items awaiting analysis.
func (db *DB) CountPendingItems(ctx context.Context) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE relevant IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending items: %w", err)
	}

	return count, nil
}

// ListPendingItems returns unanalyzed items oldest first.
func (db *DB) ListPendingItems(ctx context.Context, limit int) ([]domain.Item, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, source_id, external_id, content, engagement, published_at, ingested_at
		FROM items
		WHERE relevant IS NULL
		ORDER BY ingested_at
		LIMIT $1
	`, toInt4(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item

	for rows.Next() {
		var (
			item        domain.Item
			id, srcID   pgtype.UUID
			engagement  pgtype.Int4
			publishedAt pgtype.Timestamptz
			ingestedAt  pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &srcID, &item.ExternalID, &item.Content, &engagement, &publishedAt, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scan pending item: %w", err)
		}

		item.ID = fromUUID(id)
		item.SourceID = fromUUID(srcID)
		item.Engagement = int(engagement.Int32)
		item.PublishedAt = fromTimestamptz(publishedAt)
		item.IngestedAt = fromTimestamptz(ingestedAt)

		items = append(items, item)
	}

	return items, rows.Err()
}

// FindClassifiedByFingerprint returns the most recent already-classified
// item carrying the same fingerprint within the dedup window.
func (db *DB) FindClassifiedByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*domain.Item, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, source_id, summary, relevant, cluster_id, embedding
		FROM items
		WHERE fingerprint = $1 AND relevant IS NOT NULL AND ingested_at >= $2
		ORDER BY ingested_at DESC
		LIMIT 1
	`, fingerprint, toTimestamptz(since))

	var (
		item      domain.Item
		id, srcID pgtype.UUID
		summary   pgtype.Text
		relevant  pgtype.Bool
		clusterID pgtype.UUID
		vec       *pgvector.Vector
	)

	if err := row.Scan(&id, &srcID, &summary, &relevant, &clusterID, &vec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrNotFound
		}

		return nil, fmt.Errorf("find item by fingerprint: %w", err)
	}

	item.ID = fromUUID(id)
	item.SourceID = fromUUID(srcID)
	item.Summary = fromText(summary)
	item.Fingerprint = fingerprint
	item.ClusterID = fromUUID(clusterID)

	if relevant.Valid {
		v := relevant.Bool
		item.Relevant = &v
	}

	if vec != nil {
		item.Embedding = vec.Slice()
	}

	return &item, nil
}

// MarkItemAnalyzed stores the analysis outcome on the item. A nil
// embedding leaves the column NULL (irrelevant items are not embedded).
func (db *DB) MarkItemAnalyzed(ctx context.Context, itemID string, relevant bool, summary, fingerprint string, embedding []float32) error {
	var vec any
	if embedding != nil {
		vec = pgvector.NewVector(embedding)
	}

	if _, err := db.Pool.Exec(ctx, `
		UPDATE items
		SET relevant = $2, summary = $3, fingerprint = $4, embedding = $5
		WHERE id = $1
	`, toUUID(itemID), relevant, toText(summary), toText(fingerprint), vec); err != nil {
		return fmt.Errorf("mark item analyzed: %w", err)
	}

	return nil
}

// AssignItemCluster links an item to its cluster.
func (db *DB) AssignItemCluster(ctx context.Context, itemID, clusterID string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE items SET cluster_id = $2 WHERE id = $1
	`, toUUID(itemID), toUUID(clusterID)); err != nil {
		return fmt.Errorf("assign item cluster: %w", err)
	}

	return nil
}

// EngagementSpike is an item whose engagement crossed the multiple of
// its source's recent average.
type EngagementSpike struct {
	Item          domain.Item
	SourceAverage float64
}

// ListEngagementSpikes returns clustered items ingested after since whose
// engagement is at least multiplier times the source's average over the
// stats window.
func (db *DB) ListEngagementSpikes(ctx context.Context, since, statsSince time.Time, multiplier float64, limit int) ([]EngagementSpike, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT i.id, i.source_id, i.cluster_id, i.summary, i.engagement, s.avg_engagement
		FROM items i
		JOIN (
			SELECT source_id, AVG(engagement) AS avg_engagement
			FROM items
			WHERE ingested_at >= $2
			GROUP BY source_id
		) s ON s.source_id = i.source_id
		WHERE i.ingested_at >= $1
		  AND i.cluster_id IS NOT NULL
		  AND s.avg_engagement > 0
		  AND i.engagement >= $3 * s.avg_engagement
		ORDER BY i.engagement DESC
		LIMIT $4
	`, toTimestamptz(since), toTimestamptz(statsSince), multiplier, toInt4(limit))
	if err != nil {
		return nil, fmt.Errorf("list engagement spikes: %w", err)
	}
	defer rows.Close()

	var spikes []EngagementSpike

	for rows.Next() {
		var (
			spike          EngagementSpike
			id, srcID, cID pgtype.UUID
			summary        pgtype.Text
			engagement     pgtype.Int4
		)

		if err := rows.Scan(&id, &srcID, &cID, &summary, &engagement, &spike.SourceAverage); err != nil {
			return nil, fmt.Errorf("scan engagement spike: %w", err)
		}

		spike.Item.ID = fromUUID(id)
		spike.Item.SourceID = fromUUID(srcID)
		spike.Item.ClusterID = fromUUID(cID)
		spike.Item.Summary = fromText(summary)
		spike.Item.Engagement = int(engagement.Int32)

		spikes = append(spikes, spike)
	}

	return spikes, rows.Err()
}

// DeleteOrphanItems removes unclustered, already-analyzed items older
// than the cutoff. Bounded housekeeping, not part of the core loop.
func (db *DB) DeleteOrphanItems(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM items
		WHERE id IN (
			SELECT id FROM items
			WHERE cluster_id IS NULL AND relevant IS NOT NULL AND ingested_at < $1
			LIMIT $2
		)
	`, toTimestamptz(olderThan), toInt4(limit))
	if err != nil {
		return 0, fmt.Errorf("delete orphan items: %w", err)
	}

	return tag.RowsAffected(), nil
}
