package ledger

import (
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/lookup"
	"capital-allocator/internal/metrics"
)

// AccountCurve values the account at the close of each session: cash from
// grants and trades plus holdings marked to market. Each session receives
// grant as a flow. Positions opened before the first session are carried in
// at their market value.
func AccountCurve(trades []*domain.Trade, closes *lookup.Closes, sessions []time.Time, grant float64) metrics.Curve {
	if len(sessions) == 0 {
		return nil
	}

	opening := Build(trades, sessions[0])
	out := make(metrics.Curve, 0, len(sessions))
	contributed := 0.0
	for _, d := range sessions {
		d = domain.Day(d)
		contributed += grant
		book := Build(trades, d.AddDate(0, 0, 1))
		cash := contributed - (book.Bought - opening.Bought) + (book.Sold - opening.Sold)
		out = append(out, metrics.Point{
			Date:  d,
			Value: cash + book.MarketValue(closes, d),
			Flow:  grant,
		})
	}
	return out
}
