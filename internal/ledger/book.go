// Package ledger rebuilds holdings from recorded trades.
package ledger

import (
	"sort"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/lookup"
)

// dust below which a position counts as closed.
const dust = 1e-4

// Position is the net holding of one symbol.
type Position struct {
	Symbol   string
	Quantity float64
	Cost     float64 // average-cost basis of the open quantity
}

// Book is the set of positions implied by trades strictly before AsOf.
type Book struct {
	AsOf      time.Time
	Positions map[string]*Position
	Bought    float64 // cumulative BUY amount
	Sold      float64 // cumulative SELL amount
}

// Build replays trades dated strictly before asOf in date order.
func Build(trades []*domain.Trade, asOf time.Time) *Book {
	asOf = domain.Day(asOf)
	sorted := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t != nil && domain.Day(t.TradeDate).Before(asOf) {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TradeDate.Equal(sorted[j].TradeDate) {
			return sorted[i].TradeDate.Before(sorted[j].TradeDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	b := &Book{AsOf: asOf, Positions: make(map[string]*Position)}
	for _, t := range sorted {
		b.Apply(t)
	}
	return b
}

// Apply folds one trade into the book. SELL quantities beyond the holding are
// capped at the holding.
func (b *Book) Apply(t *domain.Trade) {
	pos, ok := b.Positions[t.Symbol]
	if !ok {
		pos = &Position{Symbol: t.Symbol}
		b.Positions[t.Symbol] = pos
	}

	switch t.Action {
	case domain.ActionBuy:
		pos.Cost += t.Amount
		pos.Quantity += t.Quantity
		b.Bought += t.Amount
	case domain.ActionSell:
		qty := t.Quantity
		if qty > pos.Quantity {
			qty = pos.Quantity
		}
		if pos.Quantity > 0 {
			pos.Cost -= pos.Cost * qty / pos.Quantity
		}
		pos.Quantity -= qty
		b.Sold += t.Price * qty
	}

	if pos.Quantity < dust {
		delete(b.Positions, t.Symbol)
	}
}

// Quantity returns the held quantity of symbol.
func (b *Book) Quantity(symbol string) float64 {
	if pos, ok := b.Positions[symbol]; ok {
		return pos.Quantity
	}
	return 0
}

// HasHoldings reports whether any position is open.
func (b *Book) HasHoldings() bool {
	return len(b.Positions) > 0
}

// Symbols returns held symbols sorted.
func (b *Book) Symbols() []string {
	out := make([]string, 0, len(b.Positions))
	for sym := range b.Positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Holdings returns quantities by symbol.
func (b *Book) Holdings() map[string]float64 {
	out := make(map[string]float64, len(b.Positions))
	for sym, pos := range b.Positions {
		out[sym] = pos.Quantity
	}
	return out
}

// MarketValue marks every position to its close on or before d. Positions
// without a price are carried at cost.
func (b *Book) MarketValue(closes *lookup.Closes, d time.Time) float64 {
	total := 0.0
	for sym, pos := range b.Positions {
		px, err := closes.At(sym, d)
		if err != nil {
			total += pos.Cost
			continue
		}
		total += px * pos.Quantity
	}
	return total
}

// Cash returns contributed capital minus purchases plus sale proceeds.
func (b *Book) Cash(contributed float64) float64 {
	return contributed - b.Bought + b.Sold
}
