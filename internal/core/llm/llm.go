// Package llm provides the semantic analyzer boundary: structured
// classification of raw items, same-event confirmation for cluster
// matching, and free-text relevance scoring for personalization.
//
// The analyzer is fail-soft: transport or parsing failures
// surface as an error alongside a conservative default classification,
// so the ingestion cycle never stalls on a flaky provider.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

// Client is the semantic analyzer consumed by the pipeline.
type Client interface {
	// Analyze classifies one item's raw text. On failure it returns
	// DefaultAnalysis() together with the error.
	Analyze(ctx context.Context, text string) (domain.Analysis, error)

	// ConfirmSimilarity reports whether two summaries describe the same
	// real-world event. Failures report false.
	ConfirmSimilarity(ctx context.Context, summaryA, summaryB string) (bool, error)

	// ScoreRelevance scores a summary against a subscriber's free-text
	// filter, in [0,1]. Failures report the neutral 0.5.
	ScoreRelevance(ctx context.Context, summary, prompt string) (float32, error)

	// AssessImpact judges business impact of a story given external
	// precedent contexts.
	AssessImpact(ctx context.Context, summary string, contexts []ImpactContext) (ImpactAssessment, error)
}

// ImpactContext is one external precedent snippet fed to AssessImpact.
type ImpactContext struct {
	Title   string
	Snippet string
	URL     string
}

// ImpactAssessment is the structured business-impact judgment.
type ImpactAssessment struct {
	ImpactScore float32  `json:"impact_score"`
	Positives   []string `json:"positive_precedents"`
	Negatives   []string `json:"negative_precedents"`
	Conclusion  string   `json:"conclusion"`
}

const mockAPIKey = "mock"

// NeutralRelevance is returned when no filter is set or scoring fails.
const NeutralRelevance float32 = 0.5

// DefaultAnalysis is the conservative classification used when the
// analyzer fails: not relevant, lowest scores, highest barrier.
func DefaultAnalysis() domain.Analysis {
	return domain.Analysis{
		Relevant:     false,
		Category:     domain.CategoryMisc,
		Priority:     domain.TierLow,
		InfraBarrier: domain.TierHigh,
	}
}

// New creates the analyzer client. Without an API key (or with the
// sentinel "mock" key) it returns the mock implementation.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == mockAPIKey {
		logger.Warn().Msg("no LLM API key configured, using mock analyzer")

		return NewMock()
	}

	return newOpenAI(cfg, logger)
}
