package reporting

import (
	"fmt"
	"strings"
	"time"

	"capital-allocator/internal/decision"
	"capital-allocator/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Tuning Report %s\n\n", r.RunDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s | Window: %s to %s\n\n",
		r.RunID, r.WindowFrom.Format("2006-01-02"), r.WindowTo.Format("2006-01-02")))

	sb.WriteString(fmt.Sprintf("**Status: %s**", r.Status))
	if r.Reason != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", r.Reason))
	}
	sb.WriteString("\n\n")

	// Versions
	sb.WriteString("## Configuration\n\n")
	sb.WriteString("| Item | Value |\n")
	sb.WriteString("|------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Active version | %s |\n", orDash(r.ActiveVersionID)))
	switch {
	case r.Published():
		sb.WriteString(fmt.Sprintf("| Published version | %s |\n", r.PublishedVersionID))
		if r.PublishedStart != nil {
			sb.WriteString(fmt.Sprintf("| Effective from | %s |\n", r.PublishedStart.Format("2006-01-02")))
		}
	case r.DryRun:
		sb.WriteString("| Published version | dry run |\n")
	default:
		sb.WriteString("| Published version | - |\n")
	}
	sb.WriteString(fmt.Sprintf("| Allow unvalidated | %t |\n", r.AllowUnvalidated))
	sb.WriteString("\n")

	if len(r.Problems) > 0 {
		sb.WriteString("### Problems\n\n")
		for _, p := range r.Problems {
			sb.WriteString(fmt.Sprintf("- %s\n", p))
		}
		sb.WriteString("\n")
	}

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if r.DataQuality != nil && len(r.DataQuality.Checks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.Checks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, passFail(check.Pass)))
		}
		sb.WriteString("\n")
		if len(r.DataQuality.Errors) > 0 {
			sb.WriteString("### Integrity Errors\n\n")
			for _, err := range r.DataQuality.Errors {
				sb.WriteString(fmt.Sprintf("- %s\n", err))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Portfolio
	sb.WriteString("## Portfolio\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", r.TradeCount))
	sb.WriteString(fmt.Sprintf("| Sessions | %d |\n", r.Portfolio.Sessions))
	sb.WriteString(fmt.Sprintf("| Sharpe | %.4f |\n", r.Portfolio.Sharpe))
	sb.WriteString(fmt.Sprintf("| Max drawdown %% | %.2f |\n", r.Portfolio.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("| Total return %% | %.2f |\n", r.Portfolio.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| Should have avoided | %d |\n", r.ShouldHaveAvoided))
	sb.WriteString("\n")

	// Groups
	sb.WriteString("## Performance by Group\n\n")
	if r.Breakdown.Overall.Count > 0 {
		sb.WriteString("| Dimension | Label | Trades | WinRate% | MeanScore | MeanPnL | MeanDD | Participation | Aggressive | Conservative |\n")
		sb.WriteString("|-----------|-------|--------|----------|-----------|---------|--------|---------------|------------|--------------|\n")
		writeGroup(&sb, r.Breakdown.Overall)
		for _, m := range []map[string]metrics.GroupStats{r.Breakdown.ByCondition, r.Breakdown.ByBucket, r.Breakdown.BySignalType} {
			for _, g := range metrics.Sorted(m) {
				writeGroup(&sb, g)
			}
		}
	} else {
		sb.WriteString("No evaluated trades.\n")
	}
	sb.WriteString("\n")

	// Changes
	sb.WriteString("## Parameter Changes\n\n")
	switch {
	case r.Tuning == nil:
		sb.WriteString("Tuner not run.\n")
	case len(r.Tuning.Changes) == 0:
		sb.WriteString("No parameter changes.\n")
	default:
		sb.WriteString("| Parameter | Old | New | Rule |\n")
		sb.WriteString("|-----------|-----|-----|------|\n")
		for _, c := range r.Tuning.Changes {
			sb.WriteString(fmt.Sprintf("| %s | %g | %g | %s |\n", c.Param, c.Old, c.New, c.Rule))
		}
	}
	if r.Tuning != nil && len(r.Tuning.Skipped) > 0 {
		sb.WriteString(fmt.Sprintf("\nLoosening rules skipped (disabled): %s\n", strings.Join(r.Tuning.Skipped, ", ")))
	}
	sb.WriteString("\n")

	// Validation
	if r.Validation != nil {
		sb.WriteString(decision.RenderMarkdown(r.Validation))
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeGroup(sb *strings.Builder, g metrics.GroupStats) {
	sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f | %.4f | %.4f | %.2f | %.2f | %t | %t |\n",
		g.Dimension, g.Label, g.Count, g.WinRatePct, g.MeanScore, g.MeanPnL,
		g.MeanDrawdown, g.Participation, g.Aggressive, g.Conservative))
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
