package metrics

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestStddev_Sample(t *testing.T) {
	// mean 5, squared deviations sum 32, n-1 = 7
	got := Stddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > eps {
		t.Errorf("Stddev = %f, want %f", got, want)
	}
	if Stddev([]float64{1}) != 0 {
		t.Error("single sample should have zero stddev")
	}
}

func TestPopulationStddev(t *testing.T) {
	got := PopulationStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > eps {
		t.Errorf("PopulationStddev = %f, want 2", got)
	}
}

func TestPercentile_Interpolates(t *testing.T) {
	values := []float64{40, 10, 30, 20}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.5, 25},
		{1, 40},
		{0.25, 17.5},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.p); math.Abs(got-tt.want) > eps {
			t.Errorf("Percentile(%f) = %f, want %f", tt.p, got, tt.want)
		}
	}
	if values[0] != 40 {
		t.Error("Percentile must not reorder its input")
	}
}

func TestMaxDrawdownPct(t *testing.T) {
	index := []float64{1.0, 1.2, 0.9, 1.1, 0.96, 1.3}
	// peak 1.2 → trough 0.9 = 25%
	if got := MaxDrawdownPct(index); math.Abs(got-25) > eps {
		t.Errorf("MaxDrawdownPct = %f, want 25", got)
	}
	if got := MaxDrawdownPct([]float64{1, 1.1, 1.2}); got != 0 {
		t.Errorf("rising series drawdown = %f, want 0", got)
	}
}

func TestMaxConsecutiveLosses(t *testing.T) {
	got := MaxConsecutiveLosses([]float64{1, -1, 0, -2, 3, -1})
	if got != 3 {
		t.Errorf("MaxConsecutiveLosses = %d, want 3", got)
	}
}

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99})
	if len(got) != 2 || math.Abs(got[0]-0.1) > eps || math.Abs(got[1]+0.1) > eps {
		t.Errorf("Returns = %v", got)
	}
	if Returns([]float64{1}) != nil {
		t.Error("single point should have no returns")
	}
}

func TestSharpeRatio(t *testing.T) {
	daily := []float64{0.01, -0.005, 0.007, 0.002, -0.001}
	mean := Mean(daily)
	sd := Stddev(daily)
	want := (mean*252 - 0.05) / (sd * math.Sqrt(252))
	if got := SharpeRatio(daily, 0.05, 252); math.Abs(got-want) > eps {
		t.Errorf("SharpeRatio = %f, want %f", got, want)
	}
	if SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.05, 252) != 0 {
		t.Error("flat returns should yield zero sharpe")
	}
}
