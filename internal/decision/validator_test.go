package decision

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// curve compounds alternating returns a and b over n sessions.
func curve(n int, a, b float64) metrics.Curve {
	c := make(metrics.Curve, n)
	v := 10000.0
	for i := range c {
		if i > 0 {
			if i%2 == 0 {
				v *= 1 + a
			} else {
				v *= 1 + b
			}
		}
		c[i] = metrics.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return c
}

func bars(c metrics.Curve) []*domain.PriceBar {
	out := make([]*domain.PriceBar, len(c))
	for i, p := range c {
		px := p.Value / 100
		out[i] = &domain.PriceBar{Symbol: "SPY", Date: p.Date, Open: px, Close: px}
	}
	return out
}

func input(c metrics.Curve) Input {
	return Input{
		From:  c[0].Date,
		To:    c[len(c)-1].Date,
		Curve: c,
		Trades: []*domain.Trade{
			{ID: "early", TradeDate: start.AddDate(0, 0, 5), Symbol: "SPY", Action: domain.ActionBuy, Quantity: 1, Price: 100},
			{ID: "late", TradeDate: start.AddDate(0, 0, 45), Symbol: "SPY", Action: domain.ActionBuy, Quantity: 1, Price: 100},
		},
		Bars:      bars(c),
		Candidate: domain.DefaultParameters(),
	}
}

func TestSplit(t *testing.T) {
	c := curve(60, 0.001, 0.001)

	train, test := Split(c, c[0].Date, c[59].Date, 2.0/3.0)
	assert.Len(t, train, 40)
	assert.Len(t, test, 20)
	assert.Equal(t, c[40].Date, test[0].Date)

	train, test = Split(c, c[0].Date, c[0].Date, 2.0/3.0)
	assert.Len(t, train, 1)
	assert.Empty(t, test)
}

func TestValidate_Accept(t *testing.T) {
	res, err := NewValidator(false).Validate(input(curve(60, 0.003, 0.001)))
	require.NoError(t, err)

	assert.Equal(t, VerdictAccept, res.Verdict)
	assert.False(t, res.Overridden)
	assert.True(t, res.Publishable())
	assert.InDelta(t, 1.0, res.Score, 1e-12)
	assert.Equal(t, 20, res.Test.Sessions)
	assert.Equal(t, 1, res.TestTrades)
	for _, c := range res.Criteria {
		assert.True(t, c.Pass, c.Name)
	}
}

func TestValidate_RejectByDefault(t *testing.T) {
	res, err := NewValidator(false).Validate(input(curve(60, -0.01, -0.005)))
	require.NoError(t, err)

	assert.Equal(t, VerdictReject, res.Verdict)
	assert.False(t, res.Publishable())
	assert.False(t, res.Criteria[0].Pass, "sharpe should fail")
	assert.Less(t, res.Score, res.PassingScore)
}

func TestValidate_Override(t *testing.T) {
	res, err := NewValidator(true).Validate(input(curve(60, -0.01, -0.005)))
	require.NoError(t, err)

	assert.Equal(t, VerdictReject, res.Verdict)
	assert.True(t, res.Overridden)
	assert.True(t, res.Publishable())
	assert.Contains(t, RenderMarkdown(res), "validation override")
}

func TestValidate_InputErrors(t *testing.T) {
	in := input(curve(10, 0.001, 0.001))
	in.To = in.From.AddDate(0, 0, -1)
	if _, err := NewValidator(false).Validate(in); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}

	in = input(curve(10, 0.001, 0.001))
	in.Candidate.Validation.TrainFraction = 1
	if _, err := NewValidator(false).Validate(in); !errors.Is(err, ErrTrainFraction) {
		t.Errorf("expected ErrTrainFraction, got %v", err)
	}

	in = input(curve(10, 0.001, 0.001))
	in.From = start.AddDate(1, 0, 0)
	in.To = in.From
	if _, err := NewValidator(false).Validate(in); !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("expected ErrEmptyWindow, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	res, err := NewValidator(false).Validate(input(curve(60, 0.003, 0.001)))
	require.NoError(t, err)

	md := RenderMarkdown(res)
	assert.True(t, strings.HasPrefix(md, "## Out-of-Sample Validation"))
	assert.Contains(t, md, "**Verdict: ACCEPT**")
	assert.Contains(t, md, "| 1 | Test Sharpe |")
	assert.Contains(t, md, "Score: 1.00 (passing 1.00)")
}
