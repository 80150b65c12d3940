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

const clusterColumns = `
	id, fingerprint, canonical_text, canonical_summary, embedding, relevant,
	mention_count, source_ids, tags, analogs, action_item, category,
	importance_score, importance_reason, product_score, priority,
	alert_worthy, small_team_buildable, infra_barrier,
	first_notified_at, popularity_notified_mentions, created_at, updated_at`

// CreateCluster inserts a new cluster. Returns ErrDuplicateCluster when
// another cluster already owns the fingerprint; callers refetch by
// fingerprint and merge instead.
func (db *DB) CreateCluster(ctx context.Context, c *domain.Cluster) (string, error) {
	var vec any
	if c.Embedding != nil {
		vec = pgvector.NewVector(c.Embedding)
	}

	row := db.Pool.QueryRow(ctx, `
		INSERT INTO clusters (
			fingerprint, canonical_text, canonical_summary, embedding, relevant,
			mention_count, source_ids, tags, analogs, action_item, category,
			importance_score, importance_reason, product_score, priority,
			alert_worthy, small_team_buildable, infra_barrier
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`,
		c.Fingerprint, sanitizeUTF8(c.CanonicalText), toText(c.CanonicalSummary), vec, c.Relevant,
		toInt4(c.MentionCount), uuidArray(c.SourceIDs), c.Tags, c.Analogs, toText(c.ActionItem), string(c.Category),
		c.ImportanceScore, toText(c.ImportanceReason), c.ProductScore, string(c.Priority),
		c.AlertWorthy, c.SmallTeam, string(c.InfraBarrier),
	)

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return "", coreerrors.ErrDuplicateCluster
		}

		return "", fmt.Errorf("create cluster: %w", err)
	}

	return fromUUID(id), nil
}

// GetCluster fetches one cluster by id.
func (db *DB) GetCluster(ctx context.Context, id string) (*domain.Cluster, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+clusterColumns+` FROM clusters WHERE id = $1`, toUUID(id))

	return scanCluster(row)
}

// GetClusterByFingerprint fetches one cluster by its fingerprint.
func (db *DB) GetClusterByFingerprint(ctx context.Context, fingerprint string) (*domain.Cluster, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+clusterColumns+` FROM clusters WHERE fingerprint = $1`, fingerprint)

	return scanCluster(row)
}

// UpdateCluster persists the merged cluster state.
func (db *DB) UpdateCluster(ctx context.Context, c *domain.Cluster) error {
	var vec any
	if c.Embedding != nil {
		vec = pgvector.NewVector(c.Embedding)
	}

	if _, err := db.Pool.Exec(ctx, `
		UPDATE clusters SET
			canonical_summary = $2, embedding = $3, relevant = $4,
			mention_count = $5, source_ids = $6, tags = $7, analogs = $8,
			action_item = $9, category = $10, importance_score = $11,
			importance_reason = $12, product_score = $13, priority = $14,
			alert_worthy = $15, small_team_buildable = $16, infra_barrier = $17,
			updated_at = $18
		WHERE id = $1
	`,
		toUUID(c.ID), toText(c.CanonicalSummary), vec, c.Relevant,
		toInt4(c.MentionCount), uuidArray(c.SourceIDs), c.Tags, c.Analogs,
		toText(c.ActionItem), string(c.Category), c.ImportanceScore,
		toText(c.ImportanceReason), c.ProductScore, string(c.Priority),
		c.AlertWorthy, c.SmallTeam, string(c.InfraBarrier),
		toTimestamptz(c.UpdatedAt),
	); err != nil {
		return fmt.Errorf("update cluster: %w", err)
	}

	return nil
}

// SimilarCluster pairs a candidate cluster with its cosine similarity to
// the probe embedding.
type SimilarCluster struct {
	Cluster    *domain.Cluster
	Similarity float32
}

// FindSimilarClusters returns the nearest relevant clusters created
// after since, most similar first. The window is on creation time:
// a long-running story keeps absorbing merges without refreshing its
// own candidacy, so stale clusters age out.
func (db *DB) FindSimilarClusters(ctx context.Context, embedding []float32, since time.Time, limit int) ([]SimilarCluster, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+clusterColumns+`, 1 - (embedding <=> $1::vector) AS similarity
		FROM clusters
		WHERE embedding IS NOT NULL AND relevant AND created_at >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`, pgvector.NewVector(embedding), toTimestamptz(since), toInt4(limit))
	if err != nil {
		return nil, fmt.Errorf("find similar clusters: %w", err)
	}
	defer rows.Close()

	var out []SimilarCluster

	for rows.Next() {
		cluster, similarity, err := scanClusterWithSimilarity(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, SimilarCluster{Cluster: cluster, Similarity: similarity})
	}

	return out, rows.Err()
}

// MarkFirstNotified sets first_notified_at once. Returns false when some
// other cycle already claimed the cluster.
func (db *DB) MarkFirstNotified(ctx context.Context, clusterID string, now time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE clusters SET first_notified_at = $2
		WHERE id = $1 AND first_notified_at IS NULL
	`, toUUID(clusterID), toTimestamptz(now))
	if err != nil {
		return false, fmt.Errorf("mark first notified: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListAlertCandidates returns relevant, never-notified clusters updated
// within the window, most mentioned first.
func (db *DB) ListAlertCandidates(ctx context.Context, since time.Time, limit int) ([]*domain.Cluster, error) {
	return db.listClusters(ctx, `
		SELECT `+clusterColumns+`
		FROM clusters
		WHERE relevant AND first_notified_at IS NULL AND updated_at >= $1
		ORDER BY mention_count DESC, updated_at DESC
		LIMIT $2
	`, toTimestamptz(since), toInt4(limit))
}

// ListPopularityCandidates returns already-notified clusters whose
// mention count moved past the last popularity watermark.
func (db *DB) ListPopularityCandidates(ctx context.Context, limit int) ([]*domain.Cluster, error) {
	return db.listClusters(ctx, `
		SELECT `+clusterColumns+`
		FROM clusters
		WHERE first_notified_at IS NOT NULL
		  AND mention_count > GREATEST(popularity_notified_mentions, 1)
		ORDER BY mention_count DESC
		LIMIT $1
	`, toInt4(limit))
}

// SetPopularityWatermark records the mention count of the latest
// popularity follow-up; the watermark never moves backward.
func (db *DB) SetPopularityWatermark(ctx context.Context, clusterID string, mentions int) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE clusters
		SET popularity_notified_mentions = GREATEST(popularity_notified_mentions, $2)
		WHERE id = $1
	`, toUUID(clusterID), toInt4(mentions)); err != nil {
		return fmt.Errorf("set popularity watermark: %w", err)
	}

	return nil
}

// ListDigestClusters returns relevant clusters updated within the window
// that share at least one source with the subscriber, with the summed
// item engagement attached for ranking.
func (db *DB) ListDigestClusters(ctx context.Context, subscriberID string, since time.Time, limit int) ([]*domain.Cluster, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+clusterColumns+`,
		       (SELECT COALESCE(SUM(i.engagement), 0) FROM items i WHERE i.cluster_id = clusters.id) AS engagement
		FROM clusters
		WHERE relevant AND updated_at >= $2
		  AND source_ids && (
			SELECT COALESCE(array_agg(source_id), '{}') FROM subscriber_sources WHERE subscriber_id = $1
		  )
		ORDER BY updated_at DESC
		LIMIT $3
	`, toUUID(subscriberID), toTimestamptz(since), toInt4(limit))
	if err != nil {
		return nil, fmt.Errorf("list digest clusters: %w", err)
	}
	defer rows.Close()

	var out []*domain.Cluster

	for rows.Next() {
		cluster, engagement, err := scanClusterWithEngagement(rows)
		if err != nil {
			return nil, err
		}

		cluster.Engagement = engagement

		out = append(out, cluster)
	}

	return out, rows.Err()
}

func (db *DB) listClusters(ctx context.Context, query string, args ...any) ([]*domain.Cluster, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	var out []*domain.Cluster

	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, cluster)
	}

	return out, rows.Err()
}

func scanCluster(row pgx.Row) (*domain.Cluster, error) {
	return scanClusterInto(row)
}

func scanClusterWithSimilarity(row pgx.Row) (*domain.Cluster, float32, error) {
	var similarity float32

	cluster, err := scanClusterInto(row, &similarity)

	return cluster, similarity, err
}

func scanClusterWithEngagement(row pgx.Row) (*domain.Cluster, int, error) {
	var engagement int64

	cluster, err := scanClusterInto(row, &engagement)

	return cluster, int(engagement), err
}

func scanClusterInto(row pgx.Row, extra ...any) (*domain.Cluster, error) {
	var (
		c                domain.Cluster
		id               pgtype.UUID
		summary, action  pgtype.Text
		reason           pgtype.Text
		category, prio   string
		barrier          string
		vec              *pgvector.Vector
		mentions, marked pgtype.Int4
		sourceIDs        []pgtype.UUID
		firstNotified    pgtype.Timestamptz
		createdAt        pgtype.Timestamptz
		updatedAt        pgtype.Timestamptz
	)

	dest := []any{
		&id, &c.Fingerprint, &c.CanonicalText, &summary, &vec, &c.Relevant,
		&mentions, &sourceIDs, &c.Tags, &c.Analogs, &action, &category,
		&c.ImportanceScore, &reason, &c.ProductScore, &prio,
		&c.AlertWorthy, &c.SmallTeam, &barrier,
		&firstNotified, &marked, &createdAt, &updatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrClusterNotFound
		}

		return nil, fmt.Errorf("scan cluster: %w", err)
	}

	c.ID = fromUUID(id)
	c.CanonicalSummary = fromText(summary)
	c.ActionItem = fromText(action)
	c.ImportanceReason = fromText(reason)
	c.Category = domain.Category(category)
	c.Priority = domain.Tier(prio)
	c.InfraBarrier = domain.Tier(barrier)
	c.MentionCount = int(mentions.Int32)
	c.PopularityNotifiedMentions = int(marked.Int32)
	c.FirstNotifiedAt = fromTimestamptzPtr(firstNotified)
	c.CreatedAt = fromTimestamptz(createdAt)
	c.UpdatedAt = fromTimestamptz(updatedAt)

	if vec != nil {
		c.Embedding = vec.Slice()
	}

	for _, sid := range sourceIDs {
		c.SourceIDs = append(c.SourceIDs, fromUUID(sid))
	}

	return &c, nil
}

func uuidArray(ids []string) []pgtype.UUID {
	out := make([]pgtype.UUID, 0, len(ids))

	for _, id := range ids {
		out = append(out, toUUID(id))
	}

	return out
}
