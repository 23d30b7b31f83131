package decision

import (
	"fmt"

	"capital-allocator/internal/evaluation"
	"capital-allocator/internal/metrics"
)

// Validator evaluates a candidate parameter set out of sample.
type Validator struct {
	allowUnvalidated bool
}

// NewValidator creates a validator. allowUnvalidated lets a rejected
// candidate be published; the override is recorded on the result.
func NewValidator(allowUnvalidated bool) *Validator {
	return &Validator{allowUnvalidated: allowUnvalidated}
}

// Validate splits the window, re-labels the test slice with the candidate's
// thresholds and scores the slice's Sharpe and drawdown. Rejection is the
// default outcome on any failed weight.
func (v *Validator) Validate(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	vp := in.Candidate.Validation

	train, test := Split(in.Curve, in.From, in.To, vp.TrainFraction)
	res := &Result{
		Verdict:      VerdictReject,
		PassingScore: vp.PassingScore,
		TrainFrom:    train[0].Date,
		TrainTo:      train[len(train)-1].Date,
		Test:         metrics.Portfolio(test, vp.RiskFreeRate, vp.TradingDaysPerYear),
	}
	if len(test) > 0 {
		res.TestFrom = test[0].Date
		res.TestTo = test[len(test)-1].Date
	}

	trades := testTrades(in.Trades, test)
	ev := evaluation.NewEvaluator(evaluation.NewForwardWindow(in.Bars), in.Curve, in.Candidate)
	evals := ev.EvaluateAll(trades)
	res.TestTrades = len(evals)
	res.TestBreakdown = metrics.Aggregate(evals, ev.LabelDays(testSignals(in.Signals, test)), in.Candidate.Tuning)

	sharpeTarget := in.Candidate.Validation.MinSharpeTarget * vp.SharpeTolerance
	ddLimit := in.Candidate.Validation.MaxDrawdownTolerance * vp.DrawdownTolerance

	res.Criteria = []CriterionResult{
		{
			Name:      "Test Sharpe",
			Threshold: fmt.Sprintf(">= %.2f", sharpeTarget),
			Actual:    fmt.Sprintf("%.2f", res.Test.Sharpe),
			Weight:    vp.SharpeWeight,
			Pass:      len(test) > 1 && res.Test.Sharpe >= sharpeTarget,
		},
		{
			Name:      "Test max drawdown",
			Threshold: fmt.Sprintf("<= %.2f%%", ddLimit),
			Actual:    fmt.Sprintf("%.2f%%", res.Test.MaxDrawdownPct),
			Weight:    vp.DrawdownWeight,
			Pass:      len(test) > 1 && res.Test.MaxDrawdownPct <= ddLimit,
		},
	}

	for _, c := range res.Criteria {
		if c.Pass {
			res.Score += c.Weight
		}
	}
	if res.Score >= vp.PassingScore {
		res.Verdict = VerdictAccept
	} else if v.allowUnvalidated {
		res.Overridden = true
	}
	return res, nil
}
