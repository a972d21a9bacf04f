package insight

import (
	"fmt"
	"strings"

	"annualcompare/pkg/core/utils"
)

// Render formats an insight for terminal output. Markdown the model
// produced inside answers is flattened to plain text.
func Render(in *Insight) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Q: %s\n", in.Query)

	if in.GenerationUnavailable {
		sb.WriteString("\n[generation unavailable; showing retrieved passages]\n")
		for _, hit := range in.Retrieved {
			fmt.Fprintf(&sb, "\n[%s p.%d] (score %.3f)\n%s\n", hit.Company, hit.Page, hit.Score, hit.Text)
		}
		return sb.String()
	}

	for _, answer := range in.CompanyAnswers {
		fmt.Fprintf(&sb, "\n%s:\n%s\n", answer.Company, utils.StripToPlainText(answer.Answer))
		for _, cite := range answer.Citations {
			fmt.Fprintf(&sb, "  - %s p.%d: %s\n", cite.Company, cite.Page, trimSnippet(cite.Snippet))
		}
	}
	if in.Comparison != "" {
		fmt.Fprintf(&sb, "\nComparison:\n%s\n", utils.StripToPlainText(in.Comparison))
	}
	return sb.String()
}

func trimSnippet(s string) string {
	s = strings.TrimSpace(s)
	const maxLen = 160
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
