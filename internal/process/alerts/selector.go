// Package alerts decides which clusters interrupt subscribers and when:
// per-category eligibility pipelines, an "important" overlay, per-subscriber
// personalization with dislike suppression, popularity follow-ups and
// engagement-spike alerts.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/core/embeddings"
	"github.com/lueurxax/news-radar/internal/core/impact"
	"github.com/lueurxax/news-radar/internal/gateway"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/platform/observability"
	"github.com/lueurxax/news-radar/internal/storage"
)

// Repository is the storage surface the selector needs.
type Repository interface {
	ListAlertCandidates(ctx context.Context, since time.Time, limit int) ([]*domain.Cluster, error)
	MarkFirstNotified(ctx context.Context, clusterID string, now time.Time) (bool, error)
	ListSubscribersForSources(ctx context.Context, sourceIDs []string) ([]*domain.Subscriber, error)
	ListDownvotedEmbeddings(ctx context.Context, subscriberID string) ([][]float32, error)
	InsertAlert(ctx context.Context, alert *domain.AlertRecord) error
	ListPopularityCandidates(ctx context.Context, limit int) ([]*domain.Cluster, error)
	SetPopularityWatermark(ctx context.Context, clusterID string, mentions int) error
	ListEngagementSpikes(ctx context.Context, since, statsSince time.Time, multiplier float64, limit int) ([]storage.EngagementSpike, error)
	HasAlertOfKind(ctx context.Context, clusterID, kind string) (bool, error)
	GetCluster(ctx context.Context, id string) (*domain.Cluster, error)
}

// RelevanceScorer scores a summary against a subscriber's free-text
// interest filter.
type RelevanceScorer interface {
	ScoreRelevance(ctx context.Context, summary, prompt string) (float32, error)
}

const neutralRelevance float32 = 0.5

// Selector implements SelectAndDispatch.
type Selector struct {
	repo     Repository
	scorer   RelevanceScorer
	assessor impact.Assessor
	notifier gateway.Notifier
	cfg      *config.Config
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewSelector(repo Repository, scorer RelevanceScorer, assessor impact.Assessor, notifier gateway.Notifier, cfg *config.Config, logger *zerolog.Logger) *Selector {
	return &Selector{
		repo:     repo,
		scorer:   scorer,
		assessor: assessor,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SelectAndDispatch runs one alert cycle: pipeline selection over pending
// clusters, popularity follow-ups and engagement-spike alerts. Returns
// the number of delivered notifications.
func (s *Selector) SelectAndDispatch(ctx context.Context) (int, error) {
	s.assessor.ResetCycle()

	delivered, err := s.dispatchPending(ctx)
	if err != nil {
		return delivered, err
	}

	n, err := s.dispatchPopularity(ctx)
	delivered += n

	if err != nil {
		return delivered, err
	}

	n, err = s.dispatchReactions(ctx)
	delivered += n

	return delivered, err
}

func (s *Selector) dispatchPending(ctx context.Context) (int, error) {
	since := s.now().Add(-time.Duration(s.cfg.ClusterWindowHours) * time.Hour)

	pending, err := s.repo.ListAlertCandidates(ctx, since, s.cfg.AlertBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("list alert candidates: %w", err)
	}

	delivered := 0

	for _, cand := range selectCandidates(pending, s.cfg) {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		n, err := s.dispatchCluster(ctx, cand)
		if err != nil {
			s.logger.Error().Err(err).Str("cluster_id", cand.cluster.ID).Msg("dispatching cluster failed")

			continue
		}

		delivered += n
	}

	return delivered, nil
}

// dispatchCluster claims one cluster and fans it out. The first-notified
// mark happens before enrichment and delivery so a crash never alerts
// the same cluster twice.
func (s *Selector) dispatchCluster(ctx context.Context, cand candidate) (int, error) {
	c := cand.cluster

	if !c.Buildable() {
		return 0, nil
	}

	claimed, err := s.repo.MarkFirstNotified(ctx, c.ID, s.now())
	if err != nil {
		return 0, err
	}

	if !claimed {
		return 0, nil
	}

	// Rungs at or below the mention count at first alert never fire.
	if err := s.repo.SetPopularityWatermark(ctx, c.ID, c.MentionCount); err != nil {
		return 0, err
	}

	var assessment *impact.Assessment
	if a, ok := s.assessor.Assess(ctx, c); ok {
		assessment = &a
	}

	kind := cand.kind
	if assessment != nil && assessment.ImpactScore >= s.cfg.BusinessImpactThreshold {
		kind = domain.AlertKindImportant
	}

	text := renderAlert(c, kind, cand.reason, assessment)

	return s.fanOut(ctx, c, c.SourceIDs, kind, cand.reason, text)
}

func (s *Selector) fanOut(ctx context.Context, c *domain.Cluster, sourceIDs []string, kind, reason, text string) (int, error) {
	subs, err := s.repo.ListSubscribersForSources(ctx, sourceIDs)
	if err != nil {
		return 0, err
	}

	delivered := 0

	for _, sub := range subs {
		score, send := s.admit(ctx, c, kind, sub)
		if !send {
			continue
		}

		if err := s.deliver(ctx, sub, c, kind, reason, score, text); err != nil {
			observability.DeliveryFailures.Inc()
			s.logger.Error().Err(err).Str("subscriber_id", sub.ID).Str("cluster_id", c.ID).Msg("delivery failed")

			continue
		}

		delivered++
	}

	return delivered, nil
}

// admit applies the per-subscriber gates: category opt-out, dislike
// similarity, personalized score floor. Important alerts bypass the
// floor only.
func (s *Selector) admit(ctx context.Context, c *domain.Cluster, kind string, sub *domain.Subscriber) (float32, bool) {
	if !sub.WantsCategory(c.Category) {
		observability.AlertsSuppressed.WithLabelValues("category_optout").Inc()

		return 0, false
	}

	if s.dislikesSimilar(ctx, sub.ID, c.Embedding) {
		observability.AlertsSuppressed.WithLabelValues("dislike_similarity").Inc()

		return 0, false
	}

	userRelevance := neutralRelevance

	if sub.RelevancePrompt != "" {
		if score, err := s.scorer.ScoreRelevance(ctx, c.CanonicalSummary, sub.RelevancePrompt); err == nil {
			userRelevance = score
		}
	}

	score := PersonalizedScore(c, userRelevance)

	if score < s.cfg.PersonalizedScoreFloor && kind != domain.AlertKindImportant {
		observability.AlertsSuppressed.WithLabelValues("score_floor").Inc()

		return score, false
	}

	return score, true
}

func (s *Selector) dislikesSimilar(ctx context.Context, subscriberID string, embedding []float32) bool {
	if embedding == nil {
		return false
	}

	downvoted, err := s.repo.ListDownvotedEmbeddings(ctx, subscriberID)
	if err != nil {
		s.logger.Warn().Err(err).Str("subscriber_id", subscriberID).Msg("loading downvoted embeddings failed")

		return false
	}

	for _, dv := range downvoted {
		if embeddings.CosineSimilarity(embedding, dv) >= s.cfg.DislikeSimilarity {
			return true
		}
	}

	return false
}

func (s *Selector) deliver(ctx context.Context, sub *domain.Subscriber, c *domain.Cluster, kind, reason string, score float32, text string) error {
	if err := s.notifier.Send(ctx, sub, gateway.Message{Kind: kind, Text: text}); err != nil {
		return err
	}

	observability.AlertsDispatched.WithLabelValues(kind).Inc()

	return s.repo.InsertAlert(ctx, &domain.AlertRecord{
		SubscriberID:   sub.ID,
		ClusterID:      c.ID,
		Kind:           kind,
		Reason:         reason,
		RelevanceScore: score,
	})
}

func (s *Selector) dispatchPopularity(ctx context.Context) (int, error) {
	candidates, err := s.repo.ListPopularityCandidates(ctx, s.cfg.PopularityBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("list popularity candidates: %w", err)
	}

	delivered := 0

	for _, c := range candidates {
		rung, ok := NextRung(c.PopularityNotifiedMentions, c.MentionCount)
		if !ok {
			continue
		}

		text := renderTrendFollowUp(c, rung)

		n, err := s.fanOut(ctx, c, c.SourceIDs, domain.AlertKindTrend, "popularity follow-up", text)
		if err != nil {
			s.logger.Error().Err(err).Str("cluster_id", c.ID).Msg("popularity follow-up failed")

			continue
		}

		delivered += n

		if err := s.repo.SetPopularityWatermark(ctx, c.ID, rung); err != nil {
			return delivered, err
		}
	}

	return delivered, nil
}

func (s *Selector) dispatchReactions(ctx context.Context) (int, error) {
	now := s.now()
	since := now.Add(-24 * time.Hour)
	statsSince := now.Add(-7 * 24 * time.Hour)

	spikes, err := s.repo.ListEngagementSpikes(ctx, since, statsSince, s.cfg.ReactionsMultiplier, s.cfg.AlertBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("list engagement spikes: %w", err)
	}

	delivered := 0

	for _, spike := range spikes {
		already, err := s.repo.HasAlertOfKind(ctx, spike.Item.ClusterID, domain.AlertKindReactions)
		if err != nil {
			s.logger.Error().Err(err).Str("cluster_id", spike.Item.ClusterID).Msg("checking prior reactions alert failed")

			continue
		}

		if already {
			continue
		}

		c, err := s.repo.GetCluster(ctx, spike.Item.ClusterID)
		if err != nil {
			s.logger.Error().Err(err).Str("cluster_id", spike.Item.ClusterID).Msg("loading spiking cluster failed")

			continue
		}

		text := renderReactionsAlert(spike.Item.Summary, spike.Item.Engagement, spike.SourceAverage)

		n, err := s.fanOut(ctx, c, []string{spike.Item.SourceID}, domain.AlertKindReactions, "engagement spike", text)
		if err != nil {
			s.logger.Error().Err(err).Str("cluster_id", c.ID).Msg("reactions alert failed")

			continue
		}

		delivered += n
	}

	return delivered, nil
}
