package ui

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"launchlab/domain/decision"
)

// RenderReportMarkdown produces the human-readable decision report.
func RenderReportMarkdown(d *decision.Decision) string {
	a := d.Analysis
	var b strings.Builder

	fmt.Fprintf(&b, "# Decision Report: run %s\n\n", a.RunID)
	fmt.Fprintf(&b, "- **Status:** %s\n", d.Status)
	fmt.Fprintf(&b, "- **Confidence:** %s\n", a.Confidence)
	fmt.Fprintf(&b, "- **Recommendation:** %s\n", a.Recommendation)
	if a.WinnerInfo != nil {
		fmt.Fprintf(&b, "- **Winner:** %s (CVR %.2f%%, win probability %.1f%%)\n",
			a.WinnerInfo.VariantID, a.WinnerInfo.CVR*100, a.WinnerInfo.WinProbability*100)
	} else {
		b.WriteString("- **Winner:** none\n")
	}
	fmt.Fprintf(&b, "- **Analyzed:** %s\n\n", a.AnalyzedAt)

	fmt.Fprintf(&b, "%s\n\n", a.Rationale)

	if a.AdditionalSamplesNeeded != nil {
		fmt.Fprintf(&b, "Approximately **%d** more clicks are needed to reach a confident verdict.\n\n", *a.AdditionalSamplesNeeded)
	}

	b.WriteString("## Ranking\n\n")
	b.WriteString("| Rank | Variant | Clicks | Conversions | CVR | Wilson 95% CI | Win Prob | Score |\n")
	b.WriteString("|------|---------|--------|-------------|-----|---------------|----------|-------|\n")
	for _, entry := range a.Ranking {
		fmt.Fprintf(&b, "| %d | %s | %d | %d | %.2f%% | [%.2f%%, %.2f%%] | %.1f%% | %.3f |\n",
			entry.Rank, entry.VariantID, entry.Metrics.Clicks, entry.Metrics.Conversions,
			entry.Metrics.CVR*100, entry.WilsonCI.Lower*100, entry.WilsonCI.Upper*100,
			entry.BayesianWinProbability*100, entry.Score)
	}

	fmt.Fprintf(&b, "\n## Totals\n\n%d clicks and %d conversions across %d variants. Mean CVR %.2f%%, median %.2f%%.\n",
		a.Aggregate.TotalClicks, a.Aggregate.TotalConversions, a.Aggregate.VariantCount,
		a.Stats.MeanCVR*100, a.Stats.MedianCVR*100)

	fmt.Fprintf(&b, "\n---\n\nSeed `%d`, fingerprint `%s`.\n", a.Seed, a.Fingerprint)
	return b.String()
}

// RenderReportHTML converts the markdown report to a standalone HTML page.
func RenderReportHTML(d *decision.Decision) []byte {
	md := []byte(RenderReportMarkdown(d))

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Decision Report: %s", d.Analysis.RunID),
	})
	return markdown.ToHTML(md, p, renderer)
}
