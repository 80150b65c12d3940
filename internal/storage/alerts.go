package storage

import (
	"context"
	"fmt"

	"github.com/lueurxax/news-radar/internal/core/domain"
)

// InsertAlert records one delivered notification. Alert rows are
// immutable history.
func (db *DB) InsertAlert(ctx context.Context, alert *domain.AlertRecord) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO alerts (subscriber_id, cluster_id, kind, reason, relevance_score)
		VALUES ($1, $2, $3, $4, $5)
	`, toUUID(alert.SubscriberID), toUUID(alert.ClusterID), alert.Kind, toText(alert.Reason), alert.RelevanceScore); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// HasAlertOfKind reports whether any subscriber was already alerted on
// the cluster with the given kind. Used to fire reactions alerts once
// per cluster.
func (db *DB) HasAlertOfKind(ctx context.Context, clusterID, kind string) (bool, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM alerts WHERE cluster_id = $1 AND kind = $2)
	`, toUUID(clusterID), kind)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("has alert of kind: %w", err)
	}

	return exists, nil
}
