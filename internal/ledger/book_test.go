package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/lookup"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trade(id string, d time.Time, sym string, action domain.Action, qty, px float64) *domain.Trade {
	return &domain.Trade{ID: id, TradeDate: d, Symbol: sym, Action: action, Quantity: qty, Price: px, Amount: qty * px}
}

func TestBuild_ExcludesAsOfAndLater(t *testing.T) {
	trades := []*domain.Trade{
		trade("t2", day(2024, 3, 5), "SPY", domain.ActionBuy, 2, 100),
		trade("t1", day(2024, 3, 4), "SPY", domain.ActionBuy, 1, 90),
		trade("t3", day(2024, 3, 6), "SPY", domain.ActionBuy, 5, 110),
	}

	b := Build(trades, day(2024, 3, 6))
	assert.InDelta(t, 3, b.Quantity("SPY"), 1e-12)
	assert.InDelta(t, 290, b.Bought, 1e-12)
	assert.True(t, b.HasHoldings())
	assert.Equal(t, []string{"SPY"}, b.Symbols())
}

func TestBook_SellReducesCostAndCaps(t *testing.T) {
	b := Build([]*domain.Trade{
		trade("a", day(2024, 3, 4), "QQQ", domain.ActionBuy, 4, 100),
		trade("b", day(2024, 3, 5), "QQQ", domain.ActionSell, 1, 120),
	}, day(2024, 3, 7))

	require.Contains(t, b.Positions, "QQQ")
	assert.InDelta(t, 3, b.Quantity("QQQ"), 1e-12)
	assert.InDelta(t, 300, b.Positions["QQQ"].Cost, 1e-9)
	assert.InDelta(t, 120, b.Sold, 1e-12)
	assert.InDelta(t, 1000-400+120, b.Cash(1000), 1e-9)

	b.Apply(trade("c", day(2024, 3, 6), "QQQ", domain.ActionSell, 10, 110))
	assert.False(t, b.HasHoldings())
	assert.InDelta(t, 120+330, b.Sold, 1e-9)
}

func TestBook_MarketValue(t *testing.T) {
	b := Build([]*domain.Trade{
		trade("a", day(2024, 3, 4), "SPY", domain.ActionBuy, 2, 100),
		trade("b", day(2024, 3, 4), "DIA", domain.ActionBuy, 1, 50),
	}, day(2024, 3, 8))

	closes := lookup.NewCloses([]*domain.PriceBar{
		{Symbol: "SPY", Date: day(2024, 3, 5), Close: 110},
	})
	// DIA has no price and is carried at cost.
	assert.InDelta(t, 2*110+50, b.MarketValue(closes, day(2024, 3, 7)), 1e-9)
}
