package reporting

import (
	"fmt"
	"strings"
	"time"

	"capital-allocator/internal/configversion"
	"capital-allocator/internal/domain"
)

// RenderHistory renders the configuration version history, newest first,
// with the tunables each version changed, followed by the signal tally for
// signals.
func RenderHistory(versions []*domain.ConfigVersion, signals []*domain.DailySignal) string {
	var b strings.Builder
	b.WriteString("# Configuration History\n\n")

	if len(versions) == 0 {
		b.WriteString("No configuration versions.\n")
	} else {
		b.WriteString("| Version | Start | End | Created by | Notes |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for i := len(versions) - 1; i >= 0; i-- {
			v := versions[i]
			end := "open"
			if v.EndDate != nil {
				end = v.EndDate.Format(time.DateOnly)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				v.ID, v.StartDate.Format(time.DateOnly), end, v.CreatedBy, orDash(v.Notes))
		}

		for i := len(versions) - 1; i > 0; i-- {
			diffs := configversion.Diff(versions[i-1].Params, versions[i].Params)
			fmt.Fprintf(&b, "\n## %s (from %s)\n\n", versions[i].StartDate.Format(time.DateOnly), versions[i].ID)
			if len(diffs) == 0 {
				b.WriteString("No tunable changes.\n")
				continue
			}
			b.WriteString("| Parameter | Old | New |\n")
			b.WriteString("|---|---|---|\n")
			for _, d := range diffs {
				fmt.Fprintf(&b, "| %s | %g | %g |\n", d.Param, d.Old, d.New)
			}
		}
	}

	b.WriteString("\n## Signals\n\n")
	if len(signals) == 0 {
		b.WriteString("No signals in range.\n")
		return b.String()
	}
	counts := map[domain.Action]int{}
	breakers := 0
	for _, s := range signals {
		counts[s.Action]++
		if s.CircuitBreakerActive {
			breakers++
		}
	}
	fmt.Fprintf(&b, "%s .. %s\n\n",
		signals[0].TradeDate.Format(time.DateOnly), signals[len(signals)-1].TradeDate.Format(time.DateOnly))
	b.WriteString("| Action | Count |\n")
	b.WriteString("|---|---|\n")
	for _, a := range []domain.Action{domain.ActionBuy, domain.ActionSell, domain.ActionHold} {
		fmt.Fprintf(&b, "| %s | %d |\n", a, counts[a])
	}
	fmt.Fprintf(&b, "| Circuit breaker days | %d |\n", breakers)
	return b.String()
}
