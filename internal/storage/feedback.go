package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
)

// UpsertFeedback records a subscriber's vote on a cluster, last vote
// wins. Vote must be +1 or -1.
func (db *DB) UpsertFeedback(ctx context.Context, subscriberID, clusterID string, vote int) error {
	if vote != 1 && vote != -1 {
		return coreerrors.ErrInvalidVote
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO feedback (subscriber_id, cluster_id, vote)
		VALUES ($1, $2, $3)
		ON CONFLICT (subscriber_id, cluster_id) DO UPDATE SET
			vote = EXCLUDED.vote,
			created_at = now()
	`, toUUID(subscriberID), toUUID(clusterID), vote); err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}

	return nil
}

// ListDownvotedEmbeddings returns embeddings of clusters the subscriber
// downvoted. Alerts too similar to any of these are suppressed.
func (db *DB) ListDownvotedEmbeddings(ctx context.Context, subscriberID string) ([][]float32, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT c.embedding
		FROM feedback f
		JOIN clusters c ON c.id = f.cluster_id
		WHERE f.subscriber_id = $1 AND f.vote = -1 AND c.embedding IS NOT NULL
	`, toUUID(subscriberID))
	if err != nil {
		return nil, fmt.Errorf("list downvoted embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings [][]float32

	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan downvoted embedding: %w", err)
		}

		embeddings = append(embeddings, vec.Slice())
	}

	return embeddings, rows.Err()
}
