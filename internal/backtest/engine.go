// Package backtest replays the daily path over a date range with paper
// execution at each session's open.
package backtest

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/idhash"
	"capital-allocator/internal/ledger"
	"capital-allocator/internal/lookup"
)

// quantityPlaces is the share precision of paper fills.
const quantityPlaces = 4

// Fill is the outcome of executing one signal.
type Fill struct {
	Trades  []*domain.Trade
	Skipped []string // symbols without an open on the trade date
}

// Execute converts a signal into paper trades at the trade date's open.
// BUY spends each allocation; SELL sells the signal's fraction of every
// holding, weakest asset first. Quantities are rounded to 1e-4 shares, down
// for buys so a fill never spends more than its allocation.
func Execute(sig *domain.DailySignal, book *ledger.Book, closes *lookup.Closes) Fill {
	var fill Fill
	switch sig.Action {
	case domain.ActionBuy:
		symbols := make([]string, 0, len(sig.Allocations))
		for sym := range sig.Allocations {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			open, ok := closes.OpenOn(sym, sig.TradeDate)
			if !ok || open <= 0 {
				fill.Skipped = append(fill.Skipped, sym)
				continue
			}
			qty := sig.Allocations[sym].Div(decimal.NewFromFloat(open)).RoundDown(quantityPlaces)
			if qty.Sign() <= 0 {
				continue
			}
			fill.Trades = append(fill.Trades, trade(sig, sym, qty, open))
		}

	case domain.ActionSell:
		symbols := book.Symbols()
		sort.SliceStable(symbols, func(i, j int) bool {
			a, b := sig.AssetScores[symbols[i]], sig.AssetScores[symbols[j]]
			if a != b {
				return a < b
			}
			return symbols[i] < symbols[j]
		})
		fraction := decimal.NewFromFloat(sig.SellFraction)
		for _, sym := range symbols {
			open, ok := closes.OpenOn(sym, sig.TradeDate)
			if !ok || open <= 0 {
				fill.Skipped = append(fill.Skipped, sym)
				continue
			}
			qty := decimal.NewFromFloat(book.Quantity(sym)).Mul(fraction).RoundBank(quantityPlaces)
			if qty.Sign() <= 0 {
				continue
			}
			fill.Trades = append(fill.Trades, trade(sig, sym, qty, open))
		}
	}
	return fill
}

func trade(sig *domain.DailySignal, sym string, qty decimal.Decimal, price float64) *domain.Trade {
	q := qty.InexactFloat64()
	return &domain.Trade{
		ID:        idhash.ComputeTradeID(sig.ID, sym, sig.Action, sig.TradeDate),
		SignalID:  sig.ID,
		TradeDate: sig.TradeDate,
		Symbol:    sym,
		Action:    sig.Action,
		Quantity:  q,
		Price:     price,
		Amount:    qty.Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64(),
		Signal:    sig.Metadata(),
	}
}

// String summarizes a fill for logs.
func (f Fill) String() string {
	return fmt.Sprintf("%d trades, %d skipped", len(f.Trades), len(f.Skipped))
}
