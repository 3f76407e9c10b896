package calculator

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		period  int
		want    float64
		wantErr bool
	}{
		{"simple", []float64{1, 2, 3, 4}, 2, 3.5, false},
		{"full window", []float64{2, 4, 6}, 3, 4, false},
		{"not enough", []float64{1}, 2, 0, true},
		{"bad period", []float64{1, 2}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SMA(tt.prices, tt.period)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestRSI(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = float64(100 + i)
	}
	if got, _ := RSI(up, 14); got != 100 {
		t.Errorf("monotonic rise: expected 100, got %f", got)
	}
	if got, _ := RSI(up[:5], 14); got != 50 {
		t.Errorf("insufficient data: expected 50, got %f", got)
	}
}

func TestRangeAndPosition(t *testing.T) {
	prices := []float64{10, 30, 20, 25}
	high, low, err := Range(prices, 0)
	if err != nil {
		t.Fatal(err)
	}
	if high != 30 || low != 10 {
		t.Errorf("got high=%f low=%f", high, low)
	}
	high, low, _ = Range(prices, 2)
	if high != 25 || low != 20 {
		t.Errorf("windowed: got high=%f low=%f", high, low)
	}
	pos, _ := Position(20, 30, 10)
	if pos != 0.5 {
		t.Errorf("position: got %f", pos)
	}
	if _, _, err := Range(nil, 0); err == nil {
		t.Error("expected error for empty prices")
	}
}

func TestTrimTail(t *testing.T) {
	got := TrimTail([]float64{1, 2, 3, 4, 5}, 3)
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Errorf("got %v", got)
	}
	if got := TrimTail([]float64{1, 2}, 0); len(got) != 2 {
		t.Errorf("uncapped: got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	history := make([]float64, 30)
	for i := range history {
		history[i] = 100
	}
	s := Summarize(history)
	if s.SMA20 != 100 || s.High != 100 || s.Low != 100 || s.Position != 0.5 {
		t.Errorf("flat history: %+v", s)
	}
	if s := Summarize(nil); s.RSI14 != 50 {
		t.Errorf("empty history RSI: %f", s.RSI14)
	}
}
