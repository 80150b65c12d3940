// Package ingest is the intake edge of the pipeline: idempotent raw item
// registration, text normalization and fingerprinting, cross-source
// duplicate reuse and the keyword prefilter in front of the analyzer.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
	"github.com/lueurxax/news-radar/internal/core/llm"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/platform/observability"
)

// Status is the outcome of an Ingest call.
type Status int

const (
	// Accepted means a new item was registered.
	Accepted Status = iota

	// Duplicate means the item was registered but a fingerprint twin
	// already exists in the dedup window; processing will reuse its
	// classification.
	Duplicate

	// Rejected means the (source, external id) pair was seen before;
	// only the engagement count is refreshed.
	Rejected
)

// RawItem is one unit handed over by a connector.
type RawItem struct {
	SourceID    string
	ExternalID  string
	Content     string
	Engagement  int
	PublishedAt time.Time
}

// Repository is the storage surface the gate needs.
type Repository interface {
	CreateItem(ctx context.Context, item *domain.Item) (string, error)
	UpdateItemEngagement(ctx context.Context, sourceID, externalID string, engagement int) error
	ListPendingItems(ctx context.Context, limit int) ([]domain.Item, error)
	FindClassifiedByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*domain.Item, error)
	MarkItemAnalyzed(ctx context.Context, itemID string, relevant bool, summary, fingerprint string, embedding []float32) error
}

// Classifier attaches analyzed items to clusters.
type Classifier interface {
	// Classify routes a relevant analyzed item into a cluster.
	Classify(ctx context.Context, item *domain.Item, analysis domain.Analysis) (string, error)

	// AttachDuplicate counts a fingerprint-identical item against an
	// existing cluster without re-analysis.
	AttachDuplicate(ctx context.Context, item *domain.Item, clusterID string) error
}

// Gate implements intake and the pending-item processing loop.
type Gate struct {
	repo       Repository
	analyzer   llm.Client
	classifier Classifier
	cfg        *config.Config
	logger     *zerolog.Logger
}

func NewGate(repo Repository, analyzer llm.Client, classifier Classifier, cfg *config.Config, logger *zerolog.Logger) *Gate {
	return &Gate{
		repo:       repo,
		analyzer:   analyzer,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Ingest registers a raw item, once per (source, external id). Repeat
// deliveries only refresh engagement.
func (g *Gate) Ingest(ctx context.Context, raw RawItem) (Status, error) {
	item := &domain.Item{
		SourceID:    raw.SourceID,
		ExternalID:  raw.ExternalID,
		Content:     raw.Content,
		Engagement:  raw.Engagement,
		PublishedAt: raw.PublishedAt,
	}

	if _, err := g.repo.CreateItem(ctx, item); err != nil {
		if errors.Is(err, coreerrors.ErrDuplicateItem) {
			if err := g.repo.UpdateItemEngagement(ctx, raw.SourceID, raw.ExternalID, raw.Engagement); err != nil {
				return Rejected, err
			}

			return Rejected, nil
		}

		return Accepted, fmt.Errorf("ingest item: %w", err)
	}

	observability.ItemsIngested.Inc()

	if g.hasFingerprintTwin(ctx, raw.Content) {
		return Duplicate, nil
	}

	return Accepted, nil
}

// hasFingerprintTwin probes the dedup window so connectors can see a
// cross-source duplicate at intake. The reuse itself happens during
// processing.
func (g *Gate) hasFingerprintTwin(ctx context.Context, content string) bool {
	normalized := Normalize(content, g.cfg.NormalizedTextCap)
	if normalized == "" {
		return false
	}

	since := time.Now().Add(-time.Duration(g.cfg.DedupWindowHours) * time.Hour)

	prior, err := g.repo.FindClassifiedByFingerprint(ctx, Fingerprint(normalized), since)

	return err == nil && prior != nil
}

// ProcessPending walks unanalyzed items oldest first and classifies
// each one. Item failures are isolated; an open analyzer circuit stops
// the batch early and leaves the remainder pending.
func (g *Gate) ProcessPending(ctx context.Context) (int, error) {
	items, err := g.repo.ListPendingItems(ctx, g.cfg.IngestBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	processed := 0

	for i := range items {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		err := g.processItem(ctx, &items[i])
		if errors.Is(err, coreerrors.ErrClientDisabled) {
			g.logger.Warn().Int("remaining", len(items)-i).Msg("analyzer circuit open, deferring remaining items")

			return processed, nil
		}

		if err != nil {
			observability.ProcessFailures.Inc()
			g.logger.Error().Err(err).Str("item_id", items[i].ID).Msg("processing item failed")

			continue
		}

		processed++
	}

	return processed, nil
}

func (g *Gate) processItem(ctx context.Context, item *domain.Item) error {
	normalized := Normalize(item.Content, g.cfg.NormalizedTextCap)
	if normalized == "" {
		return g.repo.MarkItemAnalyzed(ctx, item.ID, false, "", "", nil)
	}

	item.Fingerprint = Fingerprint(normalized)

	since := time.Now().Add(-time.Duration(g.cfg.DedupWindowHours) * time.Hour)

	prior, err := g.repo.FindClassifiedByFingerprint(ctx, item.Fingerprint, since)
	if err != nil && !errors.Is(err, coreerrors.ErrNotFound) {
		return err
	}

	if prior != nil {
		return g.reuseClassification(ctx, item, prior)
	}

	if !PassesPrefilter(normalized) {
		observability.ItemsPrefiltered.Inc()

		return g.repo.MarkItemAnalyzed(ctx, item.ID, false, "", item.Fingerprint, nil)
	}

	analysis, err := g.analyzer.Analyze(ctx, item.Content)
	if errors.Is(err, coreerrors.ErrClientDisabled) {
		return err
	}

	if err != nil {
		// Fail-soft: the conservative default classification is applied
		// and the item is not retried.
		observability.AnalyzerFailures.Inc()
		g.logger.Warn().Err(err).Str("item_id", item.ID).Msg("analyzer failed, applying default classification")
	}

	if !analysis.Relevant {
		return g.repo.MarkItemAnalyzed(ctx, item.ID, false, analysis.Summary, item.Fingerprint, nil)
	}

	item.Summary = analysis.Summary

	if _, err := g.classifier.Classify(ctx, item, analysis); err != nil {
		return fmt.Errorf("classify item: %w", err)
	}

	return nil
}

// reuseClassification copies the prior verdict of a fingerprint twin
// from the dedup window: no analyzer call, and a relevant twin's cluster
// gains one mention from this item's source.
func (g *Gate) reuseClassification(ctx context.Context, item *domain.Item, prior *domain.Item) error {
	observability.ItemsDeduplicated.Inc()

	relevant := prior.Relevant != nil && *prior.Relevant

	if err := g.repo.MarkItemAnalyzed(ctx, item.ID, relevant, prior.Summary, item.Fingerprint, prior.Embedding); err != nil {
		return err
	}

	if !relevant || prior.ClusterID == "" {
		return nil
	}

	item.Summary = prior.Summary
	item.Embedding = prior.Embedding

	return g.classifier.AttachDuplicate(ctx, item, prior.ClusterID)
}
