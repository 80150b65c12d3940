package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
)

const maxListEntries = 3

// analysisWire is the raw JSON shape produced by the analyzer prompt.
// Fields are validated and clamped before becoming a domain.Analysis.
type analysisWire struct {
	Relevant     bool     `json:"relevant"`
	Category     string   `json:"category"`
	Summary      string   `json:"summary"`
	CoreScore    float64  `json:"core_score"`
	CoreReason   string   `json:"core_reason"`
	ProductScore float64  `json:"product_score"`
	Priority     string   `json:"priority"`
	InfraBarrier string   `json:"infra_barrier"`
	AlertWorthy  bool     `json:"alert_worthy"`
	SmallTeam    bool     `json:"small_team_possible"`
	ActionItem   string   `json:"action_item"`
	Tags         []string `json:"tags"`
	Analogs      []string `json:"product_analogs"`
}

func parseAnalysis(raw string) (domain.Analysis, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return domain.Analysis{}, err
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return domain.Analysis{}, fmt.Errorf("decoding analysis: %w", err)
	}

	return domain.Analysis{
		Summary:          strings.TrimSpace(wire.Summary),
		Relevant:         wire.Relevant,
		ImportanceScore:  clampScore(wire.CoreScore),
		ImportanceReason: strings.TrimSpace(wire.CoreReason),
		Tags:             capList(wire.Tags),
		Category:         parseCategory(wire.Category),
		SmallTeam:        wire.SmallTeam,
		InfraBarrier:     parseTier(wire.InfraBarrier, domain.TierHigh),
		ProductScore:     clampScore(wire.ProductScore),
		Priority:         parseTier(wire.Priority, domain.TierLow),
		AlertWorthy:      wire.AlertWorthy,
		Analogs:          capList(wire.Analogs),
		ActionItem:       strings.TrimSpace(wire.ActionItem),
	}, nil
}

func parseSameEvent(raw string) bool {
	payload, err := extractJSON(raw)
	if err != nil {
		return false
	}

	var wire struct {
		SameEvent bool `json:"same_event"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return false
	}

	return wire.SameEvent
}

func parseScore(raw string) (float32, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return 0, err
	}

	var wire struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return 0, fmt.Errorf("decoding score: %w", err)
	}

	return clampScore(wire.Score), nil
}

func parseImpact(raw string) (ImpactAssessment, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return ImpactAssessment{}, err
	}

	var wire struct {
		ImpactScore float64  `json:"impact_score"`
		Positives   []string `json:"positive_precedents"`
		Negatives   []string `json:"negative_precedents"`
		Conclusion  string   `json:"conclusion"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return ImpactAssessment{}, fmt.Errorf("decoding impact: %w", err)
	}

	return ImpactAssessment{
		ImpactScore: clampScore(wire.ImpactScore),
		Positives:   capList(wire.Positives),
		Negatives:   capList(wire.Negatives),
		Conclusion:  strings.TrimSpace(wire.Conclusion),
	}, nil
}

// extractJSON locates the JSON object embedded in a model response,
// tolerating markdown fences and prose around it.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", coreerrors.ErrEmptyResponse
}

func clampScore(v float64) float32 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return float32(v)
}

func parseCategory(s string) domain.Category {
	switch domain.Category(strings.ToLower(strings.TrimSpace(s))) {
	case domain.CategoryProduct:
		return domain.CategoryProduct
	case domain.CategoryTrend:
		return domain.CategoryTrend
	case domain.CategoryResearch:
		return domain.CategoryResearch
	case domain.CategoryTechUpdate:
		return domain.CategoryTechUpdate
	case domain.CategoryIndustryReport:
		return domain.CategoryIndustryReport
	default:
		return domain.CategoryMisc
	}
}

func parseTier(s string, fallback domain.Tier) domain.Tier {
	switch domain.Tier(strings.ToLower(strings.TrimSpace(s))) {
	case domain.TierLow:
		return domain.TierLow
	case domain.TierMedium:
		return domain.TierMedium
	case domain.TierHigh:
		return domain.TierHigh
	default:
		return fallback
	}
}

func capList(in []string) []string {
	out := make([]string, 0, maxListEntries)

	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		out = append(out, v)
		if len(out) == maxListEntries {
			break
		}
	}

	return out
}
