// Package pipeline holds the checks run before the monthly tuning path
// touches any parameter.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// Check names.
const (
	CheckTradeCount     = "Trades in window"
	CheckPriceHistory   = "Price history per asset"
	CheckDuplicateTrade = "Duplicate trade id count"
	CheckUnlabelled     = "Trades without signal metadata"
	CheckSignalCoverage = "Signals in window"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck `json:"checks"`
	AllPass bool               `json:"all_pass"`
	Errors  []string           `json:"errors,omitempty"` // data integrity errors

	Trades []*domain.Trade `json:"-"` // window trades, loaded once
}

// Check returns the named check, or false.
func (r *SufficiencyResult) Check(name string) (SufficiencyCheck, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return SufficiencyCheck{}, false
}

// EnoughTrades reports whether the trade count gate passed. The other checks
// degrade the run but do not stop it.
func (r *SufficiencyResult) EnoughTrades() bool {
	c, ok := r.Check(CheckTradeCount)
	return ok && c.Pass
}

// Failed lists the names of failed checks.
func (r *SufficiencyResult) Failed() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Pass {
			out = append(out, c.Name)
		}
	}
	return out
}

// SufficiencyChecker validates data sufficiency before tuning.
type SufficiencyChecker struct {
	prices  storage.PriceStore
	trades  storage.TradeStore
	signals storage.SignalStore
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(prices storage.PriceStore, trades storage.TradeStore, signals storage.SignalStore) *SufficiencyChecker {
	return &SufficiencyChecker{prices: prices, trades: trades, signals: signals}
}

// Check runs every check over [from, to] using the thresholds in p.
func (c *SufficiencyChecker) Check(ctx context.Context, from, to time.Time, p domain.Parameters) (*SufficiencyResult, error) {
	from, to = domain.Day(from), domain.Day(to)

	trades, err := c.trades.GetByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}

	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 5),
		AllPass: true,
		Trades:  trades,
	}
	add := func(check SufficiencyCheck, errs []string) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
			result.Errors = append(result.Errors, errs...)
		}
	}

	add(checkTradeCount(trades, p.Tuning.MinTrades), nil)

	priceCheck, priceErrors, err := c.checkPriceHistory(ctx, from, to, p.Universe)
	if err != nil {
		return nil, fmt.Errorf("failed to check price history: %w", err)
	}
	add(priceCheck, priceErrors)

	add(checkDuplicateTrades(trades))
	add(checkUnlabelled(trades))

	signalCheck, err := c.checkSignalCoverage(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to check signal coverage: %w", err)
	}
	add(signalCheck, nil)

	return result, nil
}

func checkTradeCount(trades []*domain.Trade, minTrades int) SufficiencyCheck {
	return SufficiencyCheck{
		Name:      CheckTradeCount,
		Threshold: fmt.Sprintf(">= %d", minTrades),
		Actual:    fmt.Sprintf("%d", len(trades)),
		Pass:      len(trades) >= minTrades,
	}
}

// checkPriceHistory: every universe asset has min_data_days sessions before
// the window and bars through its end.
func (c *SufficiencyChecker) checkPriceHistory(ctx context.Context, from, to time.Time, u domain.UniverseParams) (SufficiencyCheck, []string, error) {
	lookFrom := from.AddDate(0, 0, -u.LookbackDays)

	assets := append([]string(nil), u.Assets...)
	sort.Strings(assets)

	var (
		parts  []string
		errors []string
	)
	for _, sym := range assets {
		bars, err := c.prices.GetRange(ctx, sym, lookFrom, to)
		if err != nil {
			return SufficiencyCheck{}, nil, fmt.Errorf("%s: %w", sym, err)
		}
		before := 0
		for _, b := range bars {
			if b.Date.Before(from) {
				before++
			}
		}
		parts = append(parts, fmt.Sprintf("%s=%d", sym, before))
		if before < u.MinDataDays {
			errors = append(errors, fmt.Sprintf("%s: %d sessions before %s, need %d",
				sym, before, from.Format("2006-01-02"), u.MinDataDays))
		}
		if len(bars) == 0 || bars[len(bars)-1].Date.Before(from) {
			errors = append(errors, fmt.Sprintf("%s: no bars inside the window", sym))
		}
	}

	return SufficiencyCheck{
		Name:      CheckPriceHistory,
		Threshold: fmt.Sprintf(">= %d sessions", u.MinDataDays),
		Actual:    strings.Join(parts, ", "),
		Pass:      len(errors) == 0,
	}, errors, nil
}

// checkDuplicateTrades: duplicate trade id count == 0.
func checkDuplicateTrades(trades []*domain.Trade) (SufficiencyCheck, []string) {
	seen := make(map[string]int)
	for _, t := range trades {
		seen[t.ID]++
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	duplicateCount := 0
	var errors []string
	for _, id := range keys {
		if n := seen[id]; n > 1 {
			duplicateCount++
			errors = append(errors, fmt.Sprintf("duplicate trade id: %s (count=%d)", id, n))
		}
	}

	return SufficiencyCheck{
		Name:      CheckDuplicateTrade,
		Threshold: "= 0",
		Actual:    fmt.Sprintf("%d", duplicateCount),
		Pass:      duplicateCount == 0,
	}, errors
}

// checkUnlabelled: trades whose originating signal was not found carry an
// empty action in their metadata.
func checkUnlabelled(trades []*domain.Trade) (SufficiencyCheck, []string) {
	var errors []string
	for _, t := range trades {
		if t.Signal.Action == "" {
			errors = append(errors, fmt.Sprintf("trade %s has no signal metadata (signal %s)", t.ID, t.SignalID))
		}
	}
	return SufficiencyCheck{
		Name:      CheckUnlabelled,
		Threshold: "= 0",
		Actual:    fmt.Sprintf("%d", len(errors)),
		Pass:      len(errors) == 0,
	}, errors
}

func (c *SufficiencyChecker) checkSignalCoverage(ctx context.Context, from, to time.Time) (SufficiencyCheck, error) {
	signals, err := c.signals.GetRange(ctx, from, to)
	if err != nil {
		return SufficiencyCheck{}, err
	}
	return SufficiencyCheck{
		Name:      CheckSignalCoverage,
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%d", len(signals)),
		Pass:      len(signals) > 0,
	}, nil
}
