package llm

import (
	"context"
	"strings"

	"github.com/lueurxax/news-radar/internal/core/domain"
)

// Mock is a deterministic analyzer for local runs and tests. Behavior
// can be overridden per call by setting the optional func fields.
type Mock struct {
	AnalyzeFunc           func(ctx context.Context, text string) (domain.Analysis, error)
	ConfirmSimilarityFunc func(ctx context.Context, a, b string) (bool, error)
	ScoreRelevanceFunc    func(ctx context.Context, summary, prompt string) (float32, error)
	AssessImpactFunc      func(ctx context.Context, summary string, contexts []ImpactContext) (ImpactAssessment, error)
}

// NewMock returns a mock analyzer with default deterministic behavior.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, text)
	}

	summary := text
	if len(summary) > 120 {
		summary = summary[:120]
	}

	return domain.Analysis{
		Summary:         summary,
		Relevant:        true,
		ImportanceScore: 0.5,
		Category:        domain.CategoryMisc,
		ProductScore:    0.3,
		Priority:        domain.TierLow,
		InfraBarrier:    domain.TierMedium,
		SmallTeam:       true,
	}, nil
}

func (m *Mock) ConfirmSimilarity(ctx context.Context, a, b string) (bool, error) {
	if m.ConfirmSimilarityFunc != nil {
		return m.ConfirmSimilarityFunc(ctx, a, b)
	}

	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)), nil
}

func (m *Mock) ScoreRelevance(ctx context.Context, summary, prompt string) (float32, error) {
	if m.ScoreRelevanceFunc != nil {
		return m.ScoreRelevanceFunc(ctx, summary, prompt)
	}

	return NeutralRelevance, nil
}

func (m *Mock) AssessImpact(ctx context.Context, summary string, contexts []ImpactContext) (ImpactAssessment, error) {
	if m.AssessImpactFunc != nil {
		return m.AssessImpactFunc(ctx, summary, contexts)
	}

	return ImpactAssessment{ImpactScore: 0.5, Conclusion: "no external precedent data"}, nil
}
