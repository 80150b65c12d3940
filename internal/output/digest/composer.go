// Package digest composes the per-subscriber daily digest: eligible
// clusters from the trailing window ranked by a weighted sort, a
// product-share quota with backfill relaxation, and a flagged fallback
// when nothing clears the gates.
package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/core/embeddings"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/platform/observability"
)

// Mode selects which slice of the feed a digest covers.
type Mode string

const (
	ModeMain           Mode = "main"
	ModeTechUpdate     Mode = "tech-update"
	ModeIndustryReport Mode = "industry-report"
)

const (
	digestQueryLimit = 200

	// fallbackPoolSize bounds the flagged entries surfaced when nothing
	// clears the gates.
	fallbackPoolSize = 5
)

// Entry is one digest line.
type Entry struct {
	ClusterID  string
	Summary    string
	Category   domain.Category
	Tags       []string
	Analogs    []string
	ActionItem string
	Mentions   int
	Importance float32
	Product    float32
	// Fallback marks an entry included despite failing the gates, used
	// when the digest would otherwise be empty.
	Fallback bool
}

// Repository is the storage surface the composer needs.
type Repository interface {
	GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error)
	ListDigestClusters(ctx context.Context, subscriberID string, since time.Time, limit int) ([]*domain.Cluster, error)
	ListDownvotedEmbeddings(ctx context.Context, subscriberID string) ([][]float32, error)
}

// RelevanceScorer scores a summary against the subscriber's free-text
// interest filter.
type RelevanceScorer interface {
	ScoreRelevance(ctx context.Context, summary, prompt string) (float32, error)
}

// Composer implements Compose.
type Composer struct {
	repo   Repository
	scorer RelevanceScorer
	cfg    *config.Config
	logger *zerolog.Logger
	now    func() time.Time
}

func NewComposer(repo Repository, scorer RelevanceScorer, cfg *config.Config, logger *zerolog.Logger) *Composer {
	return &Composer{
		repo:   repo,
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Compose builds the digest selection for one subscriber and mode.
func (c *Composer) Compose(ctx context.Context, subscriberID string, mode Mode) ([]Entry, error) {
	sub, err := c.repo.GetSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}

	since := c.now().Add(-time.Duration(c.cfg.DigestWindowHours) * time.Hour)

	clusters, err := c.repo.ListDigestClusters(ctx, subscriberID, since, digestQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("list digest clusters: %w", err)
	}

	inMode := filterByMode(clusters, mode)
	sortWeighted(inMode)

	eligible := c.gate(ctx, sub, inMode, mode)

	selected := applyQuota(eligible, c.cfg)

	if len(selected) == 0 && len(inMode) > 0 {
		// Nothing cleared the gates; surface the closest candidates
		// anyway, flagged so rendering can say why they are there.
		pool := inMode
		if len(pool) > fallbackPoolSize {
			pool = pool[:fallbackPoolSize]
		}

		entries := toEntries(pool)
		for i := range entries {
			entries[i].Fallback = true
		}

		observability.DigestsComposed.WithLabelValues(string(mode)).Inc()

		return entries, nil
	}

	observability.DigestsComposed.WithLabelValues(string(mode)).Inc()

	return toEntries(selected), nil
}

func filterByMode(clusters []*domain.Cluster, mode Mode) []*domain.Cluster {
	var out []*domain.Cluster

	for _, c := range clusters {
		switch mode {
		case ModeTechUpdate:
			if c.Category == domain.CategoryTechUpdate {
				out = append(out, c)
			}
		case ModeIndustryReport:
			if c.Category == domain.CategoryIndustryReport {
				out = append(out, c)
			}
		default:
			if c.Category != domain.CategoryTechUpdate && c.Category != domain.CategoryIndustryReport {
				out = append(out, c)
			}
		}
	}

	return out
}

// gate applies the shared eligibility rules: buildability, dislike
// suppression and, in main mode, the subscriber's free-text relevance
// floor.
func (c *Composer) gate(ctx context.Context, sub *domain.Subscriber, clusters []*domain.Cluster, mode Mode) []*domain.Cluster {
	downvoted, err := c.repo.ListDownvotedEmbeddings(ctx, sub.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("loading downvoted embeddings failed")
	}

	var out []*domain.Cluster

	for _, cl := range clusters {
		if !cl.Buildable() {
			continue
		}

		if c.disliked(cl, downvoted) {
			continue
		}

		if mode == ModeMain && sub.RelevancePrompt != "" {
			score, err := c.scorer.ScoreRelevance(ctx, cl.CanonicalSummary, sub.RelevancePrompt)
			if err == nil && score < c.cfg.PromptMinScore {
				continue
			}
		}

		out = append(out, cl)
	}

	return out
}

func (c *Composer) disliked(cl *domain.Cluster, downvoted [][]float32) bool {
	if cl.Embedding == nil {
		return false
	}

	for _, dv := range downvoted {
		if embeddings.CosineSimilarity(cl.Embedding, dv) >= c.cfg.DislikeSimilarity {
			return true
		}
	}

	return false
}

// applyQuota walks the ranked list enforcing the product share: products
// are always welcome up to the target, non-products are capped, and a
// second backfill pass relaxes the cap when the digest runs short.
func applyQuota(ranked []*domain.Cluster, cfg *config.Config) []*domain.Cluster {
	target := cfg.DigestTargetItems
	nonProductCap := nonProductCap(cfg)

	var selected []*domain.Cluster

	skipped := make([]*domain.Cluster, 0, len(ranked))
	nonProduct := 0

	for _, c := range ranked {
		if len(selected) == target {
			break
		}

		if c.Category != domain.CategoryProduct {
			if nonProduct >= nonProductCap {
				skipped = append(skipped, c)

				continue
			}

			nonProduct++
		}

		selected = append(selected, c)
	}

	for _, c := range skipped {
		if len(selected) == target {
			break
		}

		selected = append(selected, c)
	}

	return selected
}

// nonProductCap is the tighter of the configured cap and the slots left
// over after the product share of the target.
func nonProductCap(cfg *config.Config) int {
	fromShare := cfg.DigestTargetItems - int(float32(cfg.DigestTargetItems)*cfg.DigestProductShare)
	if cfg.DigestMaxNonProduct < fromShare {
		return cfg.DigestMaxNonProduct
	}

	return fromShare
}

// categoryWeight orders digest categories: actionable products first,
// research last among the named kinds.
var categoryWeight = map[domain.Category]int{
	domain.CategoryProduct:        6,
	domain.CategoryTechUpdate:     4,
	domain.CategoryIndustryReport: 3,
	domain.CategoryTrend:          2,
	domain.CategoryResearch:       1,
	domain.CategoryMisc:           0,
}

var barrierAdjustment = map[domain.Tier]float32{
	domain.TierLow:    0.1,
	domain.TierMedium: 0,
	domain.TierHigh:   -0.2,
}

func adjustedProduct(c *domain.Cluster) float32 {
	return c.ProductScore + barrierAdjustment[c.InfraBarrier]
}

func sortWeighted(clusters []*domain.Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]

		if wa, wb := categoryWeight[a.Category], categoryWeight[b.Category]; wa != wb {
			return wa > wb
		}

		if a.Buildable() != b.Buildable() {
			return a.Buildable()
		}

		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}

		if pa, pb := adjustedProduct(a), adjustedProduct(b); pa != pb {
			return pa > pb
		}

		if a.MentionCount != b.MentionCount {
			return a.MentionCount > b.MentionCount
		}

		return a.Engagement > b.Engagement
	})
}

func toEntries(clusters []*domain.Cluster) []Entry {
	entries := make([]Entry, 0, len(clusters))

	for _, c := range clusters {
		entries = append(entries, Entry{
			ClusterID:  c.ID,
			Summary:    c.CanonicalSummary,
			Category:   c.Category,
			Tags:       c.Tags,
			Analogs:    c.Analogs,
			ActionItem: c.ActionItem,
			Mentions:   c.MentionCount,
			Importance: c.ImportanceScore,
			Product:    c.ProductScore,
		})
	}

	return entries
}
