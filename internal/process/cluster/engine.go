// Package cluster routes analyzed items into deduplicated story
// clusters: tiered vector matching with a semantic tie-break, monotonic
// merging, and fingerprint-unique creation with a read-after-conflict
// fallback.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/core/embeddings"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/platform/observability"
	"github.com/lueurxax/news-radar/internal/storage"
)

// Repository is the storage surface the engine needs.
type Repository interface {
	MarkItemAnalyzed(ctx context.Context, itemID string, relevant bool, summary, fingerprint string, embedding []float32) error
	AssignItemCluster(ctx context.Context, itemID, clusterID string) error
	CreateCluster(ctx context.Context, c *domain.Cluster) (string, error)
	GetCluster(ctx context.Context, id string) (*domain.Cluster, error)
	GetClusterByFingerprint(ctx context.Context, fingerprint string) (*domain.Cluster, error)
	UpdateCluster(ctx context.Context, c *domain.Cluster) error
	FindSimilarClusters(ctx context.Context, embedding []float32, since time.Time, limit int) ([]storage.SimilarCluster, error)
}

// Confirmer is the semantic same-event check used for borderline vector
// matches.
type Confirmer interface {
	ConfirmSimilarity(ctx context.Context, summaryA, summaryB string) (bool, error)
}

// Engine implements item-to-cluster classification.
type Engine struct {
	repo       Repository
	vectorizer embeddings.Client
	confirmer  Confirmer
	cfg        *config.Config
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewEngine(repo Repository, vectorizer embeddings.Client, confirmer Confirmer, cfg *config.Config, logger *zerolog.Logger) *Engine {
	return &Engine{
		repo:       repo,
		vectorizer: vectorizer,
		confirmer:  confirmer,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Classify persists the item's analysis and attaches it to a cluster:
// similarity at or above the hard threshold merges outright, the best
// candidate in the soft band gets exactly one semantic confirmation, and
// everything else becomes a new cluster. A vectorization failure leaves
// the item standalone.
func (e *Engine) Classify(ctx context.Context, item *domain.Item, analysis domain.Analysis) (string, error) {
	if !analysis.Relevant {
		return "", e.repo.MarkItemAnalyzed(ctx, item.ID, false, analysis.Summary, item.Fingerprint, nil)
	}

	if item.Embedding == nil {
		item.Embedding = e.embed(ctx, item, analysis)
	}

	if err := e.repo.MarkItemAnalyzed(ctx, item.ID, true, analysis.Summary, item.Fingerprint, item.Embedding); err != nil {
		return "", err
	}

	if item.Embedding == nil {
		return "", nil
	}

	target, match, err := e.findMatch(ctx, item.Embedding, analysis.Summary)
	if err != nil {
		return "", err
	}

	if target != nil {
		return e.merge(ctx, item, target, analysis, match)
	}

	return e.create(ctx, item, analysis)
}

// AttachDuplicate counts a fingerprint twin against an existing cluster.
// The twin carries no fresh analysis, so only the mention count and
// source set move.
func (e *Engine) AttachDuplicate(ctx context.Context, item *domain.Item, clusterID string) error {
	c, err := e.repo.GetCluster(ctx, clusterID)
	if err != nil {
		if errors.Is(err, coreerrors.ErrClusterNotFound) {
			e.logger.Warn().Str("cluster_id", clusterID).Msg("duplicate referenced a vanished cluster")

			return nil
		}

		return err
	}

	c.AbsorbMention(item.SourceID, e.now())

	if err := e.repo.UpdateCluster(ctx, c); err != nil {
		return err
	}

	observability.ClustersMerged.WithLabelValues("fingerprint").Inc()

	return e.repo.AssignItemCluster(ctx, item.ID, c.ID)
}

func (e *Engine) embed(ctx context.Context, item *domain.Item, analysis domain.Analysis) []float32 {
	text := analysis.Summary
	if text == "" {
		text = item.Content
	}

	vec, err := e.vectorizer.Embed(ctx, text)
	if err != nil {
		e.logger.Warn().Err(err).Str("item_id", item.ID).Msg("vectorization failed, item stays standalone")

		return nil
	}

	return vec
}

func (e *Engine) findMatch(ctx context.Context, embedding []float32, summary string) (*domain.Cluster, string, error) {
	since := e.now().Add(-time.Duration(e.cfg.ClusterWindowHours) * time.Hour)

	candidates, err := e.repo.FindSimilarClusters(ctx, embedding, since, e.cfg.ClusterCandidates)
	if err != nil {
		return nil, "", fmt.Errorf("find similar clusters: %w", err)
	}

	base := e.cfg.SimilarityThreshold
	hard := e.cfg.HardSimilarityThreshold()

	var softBest *storage.SimilarCluster

	for i := range candidates {
		cand := &candidates[i]
		if !cand.Cluster.Relevant {
			continue
		}

		if cand.Similarity >= hard {
			return cand.Cluster, "hard", nil
		}

		if cand.Similarity >= base && softBest == nil {
			softBest = cand
		}
	}

	if softBest == nil {
		return nil, "", nil
	}

	confirmed, err := e.confirmer.ConfirmSimilarity(ctx, summary, softBest.Cluster.CanonicalSummary)
	if err != nil {
		e.logger.Warn().Err(err).Msg("similarity confirmation failed, treating as distinct")

		return nil, "", nil
	}

	if !confirmed {
		return nil, "", nil
	}

	return softBest.Cluster, "soft", nil
}

func (e *Engine) merge(ctx context.Context, item *domain.Item, target *domain.Cluster, analysis domain.Analysis, match string) (string, error) {
	target.Merge(item.SourceID, analysis, e.now())

	if err := e.repo.UpdateCluster(ctx, target); err != nil {
		return "", err
	}

	observability.ClustersMerged.WithLabelValues(match).Inc()

	return target.ID, e.repo.AssignItemCluster(ctx, item.ID, target.ID)
}

func (e *Engine) create(ctx context.Context, item *domain.Item, analysis domain.Analysis) (string, error) {
	c := domain.NewCluster(item, analysis, e.now())

	id, err := e.repo.CreateCluster(ctx, c)
	if errors.Is(err, coreerrors.ErrDuplicateCluster) {
		// Another item claimed the fingerprint first; fold into the winner.
		existing, err := e.repo.GetClusterByFingerprint(ctx, item.Fingerprint)
		if err != nil {
			return "", fmt.Errorf("refetch after fingerprint conflict: %w", err)
		}

		return e.merge(ctx, item, existing, analysis, "conflict")
	}

	if err != nil {
		return "", err
	}

	observability.ClustersCreated.Inc()

	return id, e.repo.AssignItemCluster(ctx, item.ID, id)
}
