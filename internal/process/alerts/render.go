package alerts

import (
	"fmt"
	"html"
	"strings"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/core/impact"
)

var kindHeaders = map[string]string{
	domain.AlertKindImportant: "🚨 Important",
	domain.AlertKindSimilar:   "📰 New story",
	domain.AlertKindTrend:     "📈 Still trending",
	domain.AlertKindReactions: "🔥 Unusual engagement",
}

// renderAlert builds the delivery text for one cluster alert. Minimal
// HTML: header, summary, score line, optional action and impact block.
func renderAlert(c *domain.Cluster, kind, reason string, assessment *impact.Assessment) string {
	var sb strings.Builder

	header := kindHeaders[kind]
	if header == "" {
		header = kindHeaders[domain.AlertKindSimilar]
	}

	fmt.Fprintf(&sb, "<b>%s</b> · %s\n\n", header, html.EscapeString(reason))
	sb.WriteString(html.EscapeString(c.CanonicalSummary))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "importance %.2f · product %.2f · mentions %d · %s",
		c.ImportanceScore, c.ProductScore, c.MentionCount, c.Category)

	if len(c.Tags) > 0 {
		fmt.Fprintf(&sb, "\ntags: %s", html.EscapeString(strings.Join(c.Tags, ", ")))
	}

	if c.ActionItem != "" {
		fmt.Fprintf(&sb, "\n\n▶ %s", html.EscapeString(c.ActionItem))
	}

	if assessment != nil {
		fmt.Fprintf(&sb, "\n\n<b>Business impact %.2f</b>: %s",
			assessment.ImpactScore, html.EscapeString(assessment.Conclusion))

		for _, p := range assessment.Positives {
			fmt.Fprintf(&sb, "\n+ %s", html.EscapeString(p))
		}

		for _, n := range assessment.Negatives {
			fmt.Fprintf(&sb, "\n- %s", html.EscapeString(n))
		}
	}

	return sb.String()
}

func renderTrendFollowUp(c *domain.Cluster, rung int) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s\n\nnow at %d mentions across %d sources",
		kindHeaders[domain.AlertKindTrend], html.EscapeString(c.CanonicalSummary), rung, len(c.SourceIDs))
}

func renderReactionsAlert(summary string, engagement int, average float64) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s\n\n%d reactions vs %.1f source average",
		kindHeaders[domain.AlertKindReactions], html.EscapeString(summary), engagement, average)
}
