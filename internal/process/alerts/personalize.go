package alerts

import "github.com/lueurxax/news-radar/internal/core/domain"

// Personalization weights. Importance dominates, product opportunity and
// the subscriber's own interest filter follow, buildability nudges up and
// a high infrastructure barrier pulls down.
const (
	weightImportance    = 0.55
	weightProduct       = 0.30
	weightUserRelevance = 0.15
	weightBuildable     = 0.08
	penaltyHighBarrier  = 0.10
)

// PersonalizedScore folds cluster scores and the subscriber's relevance
// into one dispatch score.
func PersonalizedScore(c *domain.Cluster, userRelevance float32) float32 {
	score := weightImportance*c.ImportanceScore +
		weightProduct*c.ProductScore +
		weightUserRelevance*userRelevance

	if c.Buildable() {
		score += weightBuildable
	}

	if c.InfraBarrier == domain.TierHigh {
		score -= penaltyHighBarrier
	}

	return score
}
