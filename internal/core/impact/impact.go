// Package impact enriches high-scoring stories with a business-impact
// block: external precedents retrieved from a web-search provider and a
// structured judgment from the analyzer.
package impact

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/core/llm"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

// Assessment is the enrichment attached to an alert when available.
type Assessment struct {
	ImpactScore float32
	Positives   []string
	Negatives   []string
	Conclusion  string
}

// Assessor produces business-impact blocks for clusters. A nil-safe
// disabled assessor is returned when no search provider is configured.
type Assessor interface {
	// Assess returns the impact block for a cluster, or ok=false when
	// the assessor is disabled or enrichment failed. Failures never
	// block alert delivery.
	Assess(ctx context.Context, cluster *domain.Cluster) (Assessment, bool)

	// ResetCycle clears the per-cycle cache. One cluster is assessed at
	// most once per alert cycle regardless of fan-out width.
	ResetCycle()
}

type disabled struct{}

func (disabled) Assess(context.Context, *domain.Cluster) (Assessment, bool) { return Assessment{}, false }
func (disabled) ResetCycle()                                                {}

type assessor struct {
	searcher   Searcher
	analyzer   llm.Client
	threshold  float32
	maxSources int
	logger     *zerolog.Logger

	mu    sync.Mutex
	cache map[string]cachedAssessment
}

type cachedAssessment struct {
	assessment Assessment
	ok         bool
}

// New creates the assessor. Without a Tavily API key it is disabled.
func New(cfg *config.Config, analyzer llm.Client, logger *zerolog.Logger) Assessor {
	if cfg.TavilyAPIKey == "" {
		logger.Info().Msg("no search API key configured, business-impact enrichment disabled")

		return disabled{}
	}

	return &assessor{
		searcher:   newTavily(cfg.TavilyAPIKey),
		analyzer:   analyzer,
		threshold:  cfg.BusinessImpactThreshold,
		maxSources: cfg.BusinessImpactMaxSources,
		logger:     logger,
		cache:      make(map[string]cachedAssessment),
	}
}

func (a *assessor) Assess(ctx context.Context, cluster *domain.Cluster) (Assessment, bool) {
	if cluster.ImportanceScore < a.threshold && cluster.ProductScore < a.threshold {
		return Assessment{}, false
	}

	a.mu.Lock()
	if cached, ok := a.cache[cluster.ID]; ok {
		a.mu.Unlock()

		return cached.assessment, cached.ok
	}
	a.mu.Unlock()

	assessment, ok := a.assess(ctx, cluster)

	a.mu.Lock()
	a.cache[cluster.ID] = cachedAssessment{assessment: assessment, ok: ok}
	a.mu.Unlock()

	return assessment, ok
}

func (a *assessor) assess(ctx context.Context, cluster *domain.Cluster) (Assessment, bool) {
	contexts, err := a.searcher.Search(ctx, cluster.CanonicalSummary, a.maxSources)
	if err != nil {
		a.logger.Warn().Err(err).Str("cluster_id", cluster.ID).Msg("precedent search failed")

		return Assessment{}, false
	}

	if len(contexts) == 0 {
		return Assessment{}, false
	}

	judged, err := a.analyzer.AssessImpact(ctx, cluster.CanonicalSummary, contexts)
	if err != nil {
		a.logger.Warn().Err(err).Str("cluster_id", cluster.ID).Msg("impact assessment failed")

		return Assessment{}, false
	}

	return Assessment{
		ImpactScore: judged.ImpactScore,
		Positives:   judged.Positives,
		Negatives:   judged.Negatives,
		Conclusion:  judged.Conclusion,
	}, true
}

func (a *assessor) ResetCycle() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cache = make(map[string]cachedAssessment)
}
