// Package evaluation scores historical trades with hindsight. It is only used
// by the tuning path; nothing here is reachable from daily signal generation.
package evaluation

import (
	"sort"
	"time"

	"capital-allocator/internal/domain"
)

// ForwardWindow gives access to closes after a trade date. It is the only
// type in the module that exposes future prices.
type ForwardWindow struct {
	bars map[string][]domain.PriceBar // sorted by date
}

// NewForwardWindow indexes bars by symbol.
func NewForwardWindow(bars []*domain.PriceBar) *ForwardWindow {
	byDate := make(map[string]map[time.Time]domain.PriceBar)
	for _, b := range bars {
		if b == nil {
			continue
		}
		m, ok := byDate[b.Symbol]
		if !ok {
			m = make(map[time.Time]domain.PriceBar)
			byDate[b.Symbol] = m
		}
		bar := *b
		bar.Date = domain.Day(b.Date)
		m[bar.Date] = bar
	}

	fw := &ForwardWindow{bars: make(map[string][]domain.PriceBar, len(byDate))}
	for sym, m := range byDate {
		list := make([]domain.PriceBar, 0, len(m))
		for _, b := range m {
			list = append(list, b)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
		fw.bars[sym] = list
	}
	return fw
}

// After returns up to n closes of sessions strictly after d.
func (fw *ForwardWindow) After(symbol string, d time.Time, n int) []float64 {
	bars := fw.bars[symbol]
	d = domain.Day(d)
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(d) })

	var out []float64
	for ; i < len(bars) && len(out) < n; i++ {
		out = append(out, bars[i].Close)
	}
	return out
}

// Trailing returns up to n closes of sessions on or before d, oldest first.
func (fw *ForwardWindow) Trailing(symbol string, d time.Time, n int) []float64 {
	bars := fw.bars[symbol]
	d = domain.Day(d)
	end := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(d) })
	start := end - n
	if start < 0 {
		start = 0
	}

	out := make([]float64, 0, end-start)
	for _, b := range bars[start:end] {
		out = append(out, b.Close)
	}
	return out
}
