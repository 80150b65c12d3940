package alerts

import (
	"sort"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

// researchThresholdBonus raises the importance bar for research items,
// which age better than product news and can wait for the digest.
const researchThresholdBonus = 0.05

// candidate is one cluster picked by a pipeline, with the kind it will
// dispatch as.
type candidate struct {
	cluster *domain.Cluster
	kind    string
	reason  string
}

// selectCandidates runs the per-category pipelines and the "important"
// overlay over pending clusters and returns a de-duplicated selection.
// Pipeline order fixes precedence: a cluster picked by both a category
// pipeline and the overlay dispatches once, overlay reason winning.
func selectCandidates(pending []*domain.Cluster, cfg *config.Config) []candidate {
	eligible := make([]*domain.Cluster, 0, len(pending))

	for _, c := range pending {
		if c.MentionCount >= cfg.ClusterMinMentions {
			eligible = append(eligible, c)
		}
	}

	selected := make(map[string]*candidate)
	order := make([]string, 0, len(eligible))

	add := func(c *domain.Cluster, kind, reason string) {
		if prev, ok := selected[c.ID]; ok {
			if kind == domain.AlertKindImportant && prev.kind != domain.AlertKindImportant {
				prev.kind = kind
				prev.reason = reason
			}

			return
		}

		selected[c.ID] = &candidate{cluster: c, kind: kind, reason: reason}
		order = append(order, c.ID)
	}

	for _, c := range selectProducts(eligible, cfg) {
		add(c, domain.AlertKindSimilar, "product opportunity")
	}

	for _, c := range selectByImportance(eligible, domain.CategoryTrend, cfg.MinNonProductCoreScore, cfg.TrendAlertsPerCycle) {
		add(c, domain.AlertKindSimilar, "emerging trend")
	}

	for _, c := range selectByImportance(eligible, domain.CategoryResearch, cfg.MinNonProductCoreScore+researchThresholdBonus, cfg.ResearchAlertsPerCycle) {
		add(c, domain.AlertKindSimilar, "notable research")
	}

	for _, c := range selectOptional(eligible, domain.CategoryTechUpdate, cfg.CoreScoreDisplayFloor, 1) {
		add(c, domain.AlertKindSimilar, "tech update")
	}

	for _, c := range selectOptional(eligible, domain.CategoryIndustryReport, cfg.CoreScoreDisplayFloor, 1) {
		add(c, domain.AlertKindSimilar, "industry report")
	}

	for _, c := range selectImportant(eligible, cfg) {
		add(c, domain.AlertKindImportant, "high importance")
	}

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *selected[id])
	}

	return out
}

// selectProducts takes every buildable cluster clearing the product
// score bar that is alert-worthy or at medium+ priority, best
// opportunities first.
func selectProducts(pending []*domain.Cluster, cfg *config.Config) []*domain.Cluster {
	var out []*domain.Cluster

	for _, c := range pending {
		if c.Category != domain.CategoryProduct || c.ProductScore < cfg.MinProductScore {
			continue
		}

		if !c.Buildable() {
			continue
		}

		if !c.AlertWorthy && c.Priority.Rank() < domain.TierMedium.Rank() {
			continue
		}

		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}

		if a.SmallTeam != b.SmallTeam {
			return a.SmallTeam
		}

		if ba, bb := a.InfraBarrier.Rank(), b.InfraBarrier.Rank(); ba != bb {
			return ba < bb
		}

		if a.ProductScore != b.ProductScore {
			return a.ProductScore > b.ProductScore
		}

		return a.MentionCount > b.MentionCount
	})

	return out
}

// selectByImportance takes the top alert-worthy clusters of one category
// clearing the importance threshold, capped.
func selectByImportance(pending []*domain.Cluster, category domain.Category, threshold float32, limit int) []*domain.Cluster {
	var out []*domain.Cluster

	for _, c := range pending {
		if c.Category == category && c.AlertWorthy && c.ImportanceScore >= threshold {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ImportanceScore != out[j].ImportanceScore {
			return out[i].ImportanceScore > out[j].ImportanceScore
		}

		return out[i].MentionCount > out[j].MentionCount
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

// selectOptional covers the two opt-in categories: alert-worthy with a
// relaxed score floor, urgency first.
func selectOptional(pending []*domain.Cluster, category domain.Category, floor float32, limit int) []*domain.Cluster {
	var out []*domain.Cluster

	for _, c := range pending {
		if c.Category == category && c.AlertWorthy && c.ImportanceScore >= floor {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}

		return a.ImportanceScore > b.ImportanceScore
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

// selectImportant is the cross-category overlay: alert-worthy clusters of
// outstanding importance, or strong product plays at medium+ priority.
func selectImportant(pending []*domain.Cluster, cfg *config.Config) []*domain.Cluster {
	var out []*domain.Cluster

	for _, c := range pending {
		if !c.AlertWorthy {
			continue
		}

		strongProduct := c.ProductScore >= cfg.ImportantProductScore && c.Priority.Rank() >= domain.TierMedium.Rank()
		if c.ImportanceScore >= cfg.ImportantCoreScore || strongProduct {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})

	if len(out) > cfg.ImportantAlertsPerCycle {
		out = out[:cfg.ImportantAlertsPerCycle]
	}

	return out
}
