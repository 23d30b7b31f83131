// Package lookup resolves closing prices by date.
package lookup

import (
	"errors"
	"sort"
	"time"

	"capital-allocator/internal/domain"
)

// ErrNoPriceData is returned when no close exists at or before the target date.
var ErrNoPriceData = errors.New("no price data available")

// Closes indexes daily closes per symbol. Safe for concurrent reads once built.
type Closes struct {
	bars map[string][]*domain.PriceBar // sorted by date, unique dates
}

// NewCloses builds an index from bars of any symbol in any order. Later
// duplicates of the same (symbol, date) win.
func NewCloses(bars []*domain.PriceBar) *Closes {
	bySym := make(map[string]map[time.Time]*domain.PriceBar)
	for _, b := range bars {
		if b == nil {
			continue
		}
		m, ok := bySym[b.Symbol]
		if !ok {
			m = make(map[time.Time]*domain.PriceBar)
			bySym[b.Symbol] = m
		}
		m[domain.Day(b.Date)] = b
	}

	c := &Closes{bars: make(map[string][]*domain.PriceBar, len(bySym))}
	for sym, m := range bySym {
		list := make([]*domain.PriceBar, 0, len(m))
		for _, b := range m {
			list = append(list, b)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
		c.bars[sym] = list
	}
	return c
}

// Bars returns the sorted bars for symbol. The slice must not be modified.
func (c *Closes) Bars(symbol string) []*domain.PriceBar {
	return c.bars[symbol]
}

// At returns the close on d or the latest session before it.
func (c *Closes) At(symbol string, d time.Time) (float64, error) {
	i := c.index(symbol, domain.Day(d), true)
	if i < 0 {
		return 0, ErrNoPriceData
	}
	return c.bars[symbol][i].Close, nil
}

// Before returns the close of the latest session strictly before d.
func (c *Closes) Before(symbol string, d time.Time) (float64, error) {
	i := c.index(symbol, domain.Day(d), false)
	if i < 0 {
		return 0, ErrNoPriceData
	}
	return c.bars[symbol][i].Close, nil
}

// OpenOn returns the open of the session on d exactly.
func (c *Closes) OpenOn(symbol string, d time.Time) (float64, bool) {
	d = domain.Day(d)
	bars := c.bars[symbol]
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(d) })
	if i < len(bars) && bars[i].Date.Equal(d) {
		return bars[i].Open, true
	}
	return 0, false
}

// Sessions returns the distinct session dates across all symbols within
// [from, to), ascending.
func (c *Closes) Sessions(from, to time.Time) []time.Time {
	from, to = domain.Day(from), domain.Day(to)
	seen := make(map[time.Time]struct{})
	for _, bars := range c.bars {
		for _, b := range bars {
			if !b.Date.Before(from) && b.Date.Before(to) {
				seen[b.Date] = struct{}{}
			}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// index returns the position of the latest bar on or before d (inclusive) or
// strictly before d, or -1.
func (c *Closes) index(symbol string, d time.Time, inclusive bool) int {
	bars := c.bars[symbol]
	i := sort.Search(len(bars), func(i int) bool {
		if inclusive {
			return bars[i].Date.After(d)
		}
		return !bars[i].Date.Before(d)
	})
	return i - 1
}
