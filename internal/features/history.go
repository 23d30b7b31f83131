// Package features computes per-instrument technical features for the daily
// decision path. It only ever sees prices strictly before the evaluation date.
package features

import (
	"sort"
	"time"

	"capital-allocator/internal/domain"
)

// History is an ordered, date-bounded view of one instrument's bars, all
// strictly before AsOf. The zero value is an empty history.
type History struct {
	symbol string
	asOf   time.Time
	bars   []domain.PriceBar
}

// NewHistory copies the bars for symbol dated before asOf, ordered by date.
// Bars on or after asOf and bars for other symbols are dropped; a repeated
// date keeps the last bar supplied.
func NewHistory(symbol string, bars []*domain.PriceBar, asOf time.Time) History {
	asOf = domain.Day(asOf)
	byDate := make(map[time.Time]domain.PriceBar, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol != symbol {
			continue
		}
		d := domain.Day(b.Date)
		if !d.Before(asOf) {
			continue
		}
		bar := *b
		bar.Date = d
		byDate[d] = bar
	}

	kept := make([]domain.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		kept = append(kept, b)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })

	return History{symbol: symbol, asOf: asOf, bars: kept}
}

// Symbol returns the instrument symbol.
func (h History) Symbol() string { return h.symbol }

// AsOf returns the exclusive upper date bound.
func (h History) AsOf() time.Time { return h.asOf }

// Len returns the number of sessions.
func (h History) Len() int { return len(h.bars) }

// Closes returns close prices in date order.
func (h History) Closes() []float64 {
	out := make([]float64, len(h.bars))
	for i, b := range h.bars {
		out[i] = b.Close
	}
	return out
}

// Bars returns a copy of the bars.
func (h History) Bars() []domain.PriceBar {
	out := make([]domain.PriceBar, len(h.bars))
	copy(out, h.bars)
	return out
}

// Last returns the most recent bar.
func (h History) Last() (domain.PriceBar, bool) {
	if len(h.bars) == 0 {
		return domain.PriceBar{}, false
	}
	return h.bars[len(h.bars)-1], true
}
