// Package report renders the final aggregation result as a Markdown
// document. Rendering is a pure function of its input: the same
// AggregationOutput always produces byte-identical Markdown.
package report

import (
	"fmt"
	"strings"

	"github.com/thinkscotty/medialens/internal/schema"
)

// Render produces the Markdown report. It assumes its input already
// satisfies the AggregationOutput invariants and performs no validation.
func Render(out *schema.AggregationOutput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# News Aggregation Report: %s\n\n", out.Topic)
	fmt.Fprintf(&sb, "**Generated:** %s\n", out.ProcessingTimestamp)
	fmt.Fprintf(&sb, "**Sources Checked:** %d\n", out.TotalSourcesChecked)
	fmt.Fprintf(&sb, "**Sources with Coverage:** %d\n\n", out.SourcesWithCoverage)

	sb.WriteString("## Summary\n\n")
	sb.WriteString(out.Summary)
	sb.WriteString("\n\n")

	sb.WriteString("## Media Comparison Table\n\n")

	withSentiment := false
	for _, row := range out.ComparisonTable {
		if row.Sentiment != "" {
			withSentiment = true
			break
		}
	}

	if withSentiment {
		sb.WriteString("| Country/Organization | Media Name | Article | Sentiment | Core Viewpoint |\n")
		sb.WriteString("| -------------------- | ---------- | ------- | --------- | -------------- |\n")
	} else {
		sb.WriteString("| Country/Organization | Media Name | Article | Core Viewpoint |\n")
		sb.WriteString("| -------------------- | ---------- | ------- | -------------- |\n")
	}

	for _, row := range out.ComparisonTable {
		article := fmt.Sprintf("[%s](%s)", escapeCell(row.ArticleTitle), row.ArticleURL)
		if withSentiment {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				escapeCell(row.Country), escapeCell(row.MediaName), article,
				escapeCell(row.Sentiment), escapeCell(row.CoreViewpoint))
		} else {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				escapeCell(row.Country), escapeCell(row.MediaName), article,
				escapeCell(row.CoreViewpoint))
		}
	}

	return sb.String()
}

// escapeCell keeps cell content from breaking the pipe table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
