package digest

import (
	"fmt"
	"html"
	"strings"

	"github.com/lueurxax/news-radar/internal/core/domain"
)

var modeHeaders = map[Mode]string{
	ModeMain:           "🗞 Daily digest",
	ModeTechUpdate:     "🔧 Tech updates",
	ModeIndustryReport: "📊 Industry reports",
}

var categoryLabels = map[domain.Category]string{
	domain.CategoryProduct:        "product",
	domain.CategoryTrend:          "trend",
	domain.CategoryResearch:       "research",
	domain.CategoryTechUpdate:     "tech update",
	domain.CategoryIndustryReport: "industry report",
	domain.CategoryMisc:           "misc",
}

// Render builds the delivery text for one digest. Minimal HTML: header,
// numbered entries with summary, category line and optional action item.
func Render(entries []Entry, mode Mode) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b>\n", modeHeaders[mode])

	for i, e := range entries {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, html.EscapeString(e.Summary))

		fmt.Fprintf(&sb, "   %s · %d mentions", categoryLabels[e.Category], e.Mentions)

		if e.Category == domain.CategoryProduct {
			fmt.Fprintf(&sb, " · product %.2f", e.Product)
		}

		if e.Fallback {
			sb.WriteString(" · quiet day, closest match")
		}

		if len(e.Tags) > 0 {
			fmt.Fprintf(&sb, "\n   tags: %s", html.EscapeString(strings.Join(e.Tags, ", ")))
		}

		if e.ActionItem != "" {
			fmt.Fprintf(&sb, "\n   ▶ %s", html.EscapeString(e.ActionItem))
		}

		sb.WriteString("\n")
	}

	if len(entries) == 0 {
		sb.WriteString("\nNothing worth your attention today.\n")
	}

	return sb.String()
}
