package news

import (
	"math"
	"math/rand"
	"testing"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

func snapshot() []model.Instrument {
	return []model.Instrument{
		{Ticker: "ACME", Sector: "Technology", Price: 100, Volatility: 0.02},
		{Ticker: "BOLT", Sector: "Technology", Price: 50, Volatility: 0.04},
		{Ticker: "CRUD", Sector: "Energy", Price: 20, Volatility: 0.2},
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		score, scale, want float64
	}{
		{10, 10, 1},
		{-25, 10, -1},
		{5, 10, 0.5},
		{3, 0, 0},
		{math.NaN(), 10, 0},
	}
	for _, tt := range tests {
		if got := Normalize(tt.score, tt.scale); got != tt.want {
			t.Errorf("Normalize(%v, %v) = %v, want %v", tt.score, tt.scale, got, tt.want)
		}
	}
}

func TestWeight_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i <= 100; i++ {
		s := float64(i)/50 - 1
		w := Weight(s, 5, rng)
		if w < 25 || w > 100 {
			t.Fatalf("weight %f out of [25,100] for s=%f", w, s)
		}
	}
	if Weight(0, 0, rng) != 25 || Weight(1, 0, rng) != 100 {
		t.Error("unjittered endpoints should be 25 and 100")
	}
}

func TestCompute_MaxSentimentWithinItemCap(t *testing.T) {
	l := NewLayer(DefaultParams(), rand.New(rand.NewSource(9)))
	snap := snapshot()
	patches, log := l.Compute(snap, []Item{{Target: "ACME", Scope: ScopeTicker, Summary: "record earnings", Sentiment: 10}})

	p, ok := patches["ACME"]
	if !ok {
		t.Fatal("expected patch for ACME")
	}
	if d := p.Inc[patch.Price]; d <= 0 || d > 0.05*100+1e-9 {
		t.Errorf("delta %f not in (0, 5]", d)
	}
	if len(patches) != 1 {
		t.Errorf("expected only ACME patched, got %d", len(patches))
	}
	if len(log) != 1 || log[0].Reason != "record earnings" {
		t.Errorf("unexpected log: %+v", log)
	}
	wantVol := 0.02 * 1.5
	if math.Abs(log[0].Volatility-wantVol) > 1e-12 {
		t.Errorf("expected vol %f, got %f", wantVol, log[0].Volatility)
	}
}

func TestCompute_TickCapAndLastWriteVolatility(t *testing.T) {
	params := DefaultParams()
	params.TickImpactCap = 0.06
	l := NewLayer(params, rand.New(rand.NewSource(2)))
	snap := snapshot()
	items := []Item{
		{Target: "ACME", Sentiment: 10},
		{Target: "ACME", Sentiment: 10},
		{Target: "ACME", Sentiment: 10},
		{Target: "ACME", Sentiment: 2},
	}
	patches, _ := l.Compute(snap, items)
	p := patches["ACME"]
	if d := p.Inc[patch.Price]; d > 100*0.06+1e-9 {
		t.Errorf("running sum %f exceeds tick cap", d)
	}
	// Last item has |s| = 0.2, so the bump is 1.1x, not compounded.
	if got := 0.02 + p.Inc[patch.Volatility]; math.Abs(got-0.022) > 1e-12 {
		t.Errorf("expected last-write vol 0.022, got %f", got)
	}
}

func TestCompute_TargetResolution(t *testing.T) {
	l := NewLayer(DefaultParams(), rand.New(rand.NewSource(4)))
	snap := snapshot()

	patches, _ := l.Compute(snap, []Item{{Target: "Technology", Scope: ScopeSector, Sentiment: -6}})
	if len(patches) != 2 || patches["CRUD"] != nil {
		t.Errorf("sector item should hit ACME and BOLT only: %v", patches)
	}
	for _, ticker := range []string{"ACME", "BOLT"} {
		if patches[ticker].Inc[patch.Price] >= 0 {
			t.Errorf("%s expected negative delta", ticker)
		}
	}

	patches, _ = l.Compute(snap, []Item{{Target: GlobalTarget, Scope: ScopeGlobal, Sentiment: 3}})
	if len(patches) != 3 {
		t.Errorf("global item should hit all, got %d", len(patches))
	}

	patches, log := l.Compute(snap, []Item{{Target: "ZZZZ", Scope: ScopeTicker, Sentiment: 8}})
	if len(patches) != 0 || len(log) != 0 {
		t.Error("unmatched item should be dropped")
	}
}

func TestCompute_VolatilityClampedToGlobalMax(t *testing.T) {
	l := NewLayer(DefaultParams(), rand.New(rand.NewSource(5)))
	snap := snapshot()
	patches, _ := l.Compute(snap, []Item{{Target: "CRUD", Sentiment: -10}})
	got := 0.2 + patches["CRUD"].Inc[patch.Volatility]
	if math.Abs(got-model.VolMax) > 1e-12 {
		t.Errorf("expected volatility clamped to %f, got %f", model.VolMax, got)
	}
}
