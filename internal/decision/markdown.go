package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a validation result as Markdown.
func RenderMarkdown(result *Result) string {
	var sb strings.Builder

	sb.WriteString("## Out-of-Sample Validation\n\n")
	sb.WriteString(fmt.Sprintf("**Verdict: %s**", result.Verdict))
	if result.Overridden {
		sb.WriteString(" (published anyway: validation override)")
	}
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("- Train: %s to %s\n", result.TrainFrom.Format("2006-01-02"), result.TrainTo.Format("2006-01-02")))
	if result.TestFrom.IsZero() {
		sb.WriteString("- Test: no sessions\n")
	} else {
		sb.WriteString(fmt.Sprintf("- Test: %s to %s (%d sessions, %d trades)\n",
			result.TestFrom.Format("2006-01-02"), result.TestTo.Format("2006-01-02"),
			result.Test.Sessions, result.TestTrades))
	}
	sb.WriteString("\n")

	sb.WriteString("| # | Criterion | Threshold | Actual | Weight | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|--------|------|\n")
	for i, c := range result.Criteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %.2f | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, c.Weight, passStr))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Score: %.2f (passing %.2f)\n", result.Score, result.PassingScore))

	return sb.String()
}
