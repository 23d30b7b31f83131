// Package decision gates a tuned parameter set on a held-out slice of the
// tuning window before it may be published.
package decision

import (
	"errors"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

// Verdict is the validation outcome.
type Verdict string

const (
	VerdictAccept Verdict = "ACCEPT"
	VerdictReject Verdict = "REJECT"
)

// Input validation errors.
var (
	ErrEmptyWindow   = errors.New("validation window is empty")
	ErrInvalidWindow = errors.New("validation window ends before it starts")
	ErrTrainFraction = errors.New("train fraction must be in (0, 1)")
)

// Input is everything the validator reads. Bars must cover the forward
// horizons of test-slice trades; the daily path never sees this type.
type Input struct {
	From, To  time.Time
	Curve     metrics.Curve
	Trades    []*domain.Trade
	Signals   []*domain.DailySignal
	Bars      []*domain.PriceBar
	Candidate domain.Parameters
}

// Validate checks the window and split settings.
func (in *Input) Validate() error {
	if in == nil {
		return ErrEmptyWindow
	}
	if in.To.Before(in.From) {
		return ErrInvalidWindow
	}
	if f := in.Candidate.Validation.TrainFraction; f <= 0 || f >= 1 {
		return ErrTrainFraction
	}
	if len(in.Curve.Between(in.From, in.To)) == 0 {
		return ErrEmptyWindow
	}
	return nil
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string  `json:"name"`
	Threshold string  `json:"threshold"`
	Actual    string  `json:"actual"`
	Weight    float64 `json:"weight"`
	Pass      bool    `json:"pass"`
}

// Result is the validator output.
type Result struct {
	Verdict    Verdict `json:"verdict"`
	Overridden bool    `json:"overridden"` // rejected but published under AllowUnvalidated

	TrainFrom time.Time `json:"train_from"`
	TrainTo   time.Time `json:"train_to"`
	TestFrom  time.Time `json:"test_from"`
	TestTo    time.Time `json:"test_to"`

	Test          metrics.PortfolioStats `json:"test"`
	TestTrades    int                    `json:"test_trades"`
	TestBreakdown metrics.Breakdown      `json:"test_breakdown"`

	Score        float64           `json:"score"`
	PassingScore float64           `json:"passing_score"`
	Criteria     []CriterionResult `json:"criteria"`
}

// Publishable reports whether the candidate may be published.
func (r *Result) Publishable() bool {
	return r.Verdict == VerdictAccept || r.Overridden
}
