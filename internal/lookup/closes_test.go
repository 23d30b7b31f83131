package lookup

import (
	"testing"
	"time"

	"capital-allocator/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCloses() *Closes {
	return NewCloses([]*domain.PriceBar{
		{Symbol: "SPY", Date: day(2024, 3, 6), Open: 2.5, Close: 3},
		{Symbol: "SPY", Date: day(2024, 3, 4), Open: 0.5, Close: 1},
		{Symbol: "SPY", Date: day(2024, 3, 5), Open: 1.5, Close: 2},
		{Symbol: "QQQ", Date: day(2024, 3, 5), Open: 9, Close: 10},
	})
}

func TestCloses_At(t *testing.T) {
	c := testCloses()

	tests := []struct {
		name    string
		symbol  string
		date    time.Time
		want    float64
		wantErr bool
	}{
		{"exact", "SPY", day(2024, 3, 5), 2, false},
		{"weekend carries last", "SPY", day(2024, 3, 9), 3, false},
		{"intraday", "SPY", day(2024, 3, 5).Add(20 * time.Hour), 2, false},
		{"before first", "SPY", day(2024, 3, 1), 0, true},
		{"unknown symbol", "DIA", day(2024, 3, 5), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.At(tt.symbol, tt.date)
			if tt.wantErr {
				if err != ErrNoPriceData {
					t.Errorf("expected ErrNoPriceData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("At = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCloses_BeforeIsStrict(t *testing.T) {
	c := testCloses()

	got, err := c.Before("SPY", day(2024, 3, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("Before = %f, want 1", got)
	}

	if _, err := c.Before("SPY", day(2024, 3, 4)); err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestCloses_OpenOnAndSessions(t *testing.T) {
	c := testCloses()

	if open, ok := c.OpenOn("SPY", day(2024, 3, 6)); !ok || open != 2.5 {
		t.Errorf("OpenOn = %f, %v", open, ok)
	}
	if _, ok := c.OpenOn("QQQ", day(2024, 3, 6)); ok {
		t.Error("expected no QQQ session on 2024-03-06")
	}

	sessions := c.Sessions(day(2024, 3, 1), day(2024, 3, 6))
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if !sessions[0].Equal(day(2024, 3, 4)) || !sessions[1].Equal(day(2024, 3, 5)) {
		t.Errorf("unexpected sessions %v", sessions)
	}
}
