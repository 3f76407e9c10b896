package pricing

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
	"github.com/TheFaucett/stock-game-sub000/internal/profile"
)

func universe(n int, price, vol float64) []model.Instrument {
	sectors := []string{"Technology", "Energy", "Finance"}
	out := make([]model.Instrument, n)
	for i := range out {
		out[i] = model.Instrument{
			Ticker:     string(rune('A'+i%26)) + string(rune('A'+i/26%26)) + string(rune('A'+i/676)),
			Sector:     sectors[i%len(sectors)],
			Price:      price,
			Volatility: vol,
			Anchor:     price,
			History:    []float64{price},
		}
	}
	return out
}

func run(t *testing.T, m *Model, insts []model.Instrument, p profile.Profile, ticks int, check func(before, after model.Instrument)) {
	t.Helper()
	for tick := 0; tick < ticks; tick++ {
		patches := m.Compute(insts, p)
		for i := range insts {
			before := insts[i]
			if err := patch.Apply(&insts[i], patches[insts[i].Ticker]); err != nil {
				t.Fatalf("apply %s: %v", insts[i].Ticker, err)
			}
			if check != nil {
				check(before, insts[i])
			}
		}
	}
}

func TestCompute_InvariantsAcrossProfiles(t *testing.T) {
	for _, p := range profile.Builtins() {
		t.Run(p.Name, func(t *testing.T) {
			m := New(rand.New(rand.NewSource(7)))
			insts := universe(30, 50, p.VolatilityBase)
			run(t, m, insts, p, 500, func(before, after model.Instrument) {
				move := math.Abs(after.Price-before.Price) / before.Price
				if move > p.MaxMovePerTick+1e-9 && after.Price > model.MinPrice {
					t.Fatalf("%s moved %.4f > %.4f", after.Ticker, move, p.MaxMovePerTick)
				}
				if after.Volatility < model.VolMin || after.Volatility > model.VolMax {
					t.Fatalf("%s volatility %f out of bounds", after.Ticker, after.Volatility)
				}
				if after.Volatility < p.VolatilityClamp.Lo || after.Volatility > p.VolatilityClamp.Hi {
					t.Fatalf("%s volatility %f outside profile clamp", after.Ticker, after.Volatility)
				}
				if len(after.History) > p.HistoryLimit {
					t.Fatalf("%s history %d > %d", after.Ticker, len(after.History), p.HistoryLimit)
				}
				if after.History[len(after.History)-1] != after.Price {
					t.Fatalf("%s newest history entry differs from price", after.Ticker)
				}
				if math.Abs(after.Drift) > p.DriftClamp+1e-12 {
					t.Fatalf("%s drift %f beyond clamp", after.Ticker, after.Drift)
				}
			})
			for sector := range map[string]bool{"Technology": true, "Energy": true, "Finance": true} {
				b, ok := m.SectorBias(sector)
				if !ok || math.Abs(b) > p.SectorClamp+1e-12 {
					t.Errorf("sector %s bias %f (ok=%v) beyond clamp %f", sector, b, ok, p.SectorClamp)
				}
			}
		})
	}
}

func TestCompute_DefaultProfileOneYearGrowth(t *testing.T) {
	p := profile.Builtins()[0]
	if p.Name != "default" {
		t.Fatalf("first builtin is %q", p.Name)
	}

	const seeds = 201
	growth := map[string][]float64{}
	for seed := int64(1); seed <= seeds; seed++ {
		m := New(rand.New(rand.NewSource(seed)))
		insts := universe(3, 100, 0.02)
		run(t, m, insts, p, int(p.TicksPerYear), nil)
		for _, inst := range insts {
			growth[inst.Sector] = append(growth[inst.Sector], inst.Price/100-1)
		}
	}

	// Finance has no sector entry and walks from the default bias.
	for _, sector := range []string{"Technology", "Energy", "Finance"} {
		g := growth[sector]
		sort.Float64s(g)
		median := g[len(g)/2]
		if median < 0.06 || median > 0.20 {
			t.Errorf("%s median one-year growth %.4f outside [0.06, 0.20]", sector, median)
		}
	}
}

func TestCompute_AnnualDriftWithoutBias(t *testing.T) {
	p := profile.Builtins()[0]
	p.DefaultBias = 0
	p.SectorBias = nil
	p.SectorStep = 0
	p.DriftStep = 0

	m := New(rand.New(rand.NewSource(42)))
	insts := universe(400, 100, 0.02)
	run(t, m, insts, p, int(p.TicksPerYear), nil)

	total := 0.0
	for _, inst := range insts {
		total += inst.Price/100 - 1
	}
	mean := total / float64(len(insts))
	if mean < 0.01 || mean > 0.08 {
		t.Errorf("mean one-year growth %.4f outside expected band around 4%%", mean)
	}
}

func TestCompute_ProfileSwapResetsSectorWalk(t *testing.T) {
	profiles := profile.Builtins()
	m := New(rand.New(rand.NewSource(1)))
	insts := universe(3, 10, 0.02)

	m.Compute(insts, profiles[0])
	m.Compute(insts, profiles[4]) // crisis
	b, _ := m.SectorBias("Energy")
	crisis := profiles[4]
	start := crisis.InitialBias("Energy")
	if math.Abs(b-start) > 5*crisis.SectorStep+1e-12 {
		t.Errorf("bias %f did not restart near crisis initial %f", b, start)
	}
}

func TestCompute_SnapshotUntouched(t *testing.T) {
	m := New(rand.New(rand.NewSource(3)))
	insts := universe(5, 20, 0.02)
	m.Compute(insts, profile.Builtins()[0])
	for _, inst := range insts {
		if inst.Price != 20 || len(inst.History) != 1 {
			t.Errorf("snapshot mutated: %+v", inst)
		}
	}
}

func TestRestore_ContinuesSectorWalk(t *testing.T) {
	p := profile.Builtins()[0]
	insts := universe(3, 100, 0.02)

	m := New(rand.New(rand.NewSource(5)))
	for i := 0; i < 50; i++ {
		m.Compute(insts, p)
	}
	saved := m.Biases()
	if len(saved) != 3 {
		t.Fatalf("expected 3 sectors, got %v", saved)
	}

	a := New(rand.New(rand.NewSource(9)))
	a.Restore(p.Name, saved)
	b := New(rand.New(rand.NewSource(9)))
	b.Restore(p.Name, saved)
	saved["Energy"] = 1 // Restore copies its input

	pa := a.Compute(insts, p)
	pb := b.Compute(insts, p)
	for _, inst := range insts {
		got, _ := a.SectorBias(inst.Sector)
		want, _ := b.SectorBias(inst.Sector)
		if got != want || math.Abs(got-m.bias[inst.Sector]) > p.SectorStep*6 {
			t.Errorf("%s bias %f did not continue from %f", inst.Sector, got, m.bias[inst.Sector])
		}
		if pa[inst.Ticker].Set[patch.Price] != pb[inst.Ticker].Set[patch.Price] {
			t.Errorf("%s restored models diverged", inst.Ticker)
		}
	}

	c := New(rand.New(rand.NewSource(9)))
	c.Restore("bull", map[string]float64{"Energy": -0.0007})
	c.Compute(insts, p)
	got, _ := c.SectorBias("Energy")
	if start := p.InitialBias("Energy"); math.Abs(got-start) > p.SectorStep*6 {
		t.Errorf("walk under another profile should restart near %f, got %f", start, got)
	}
}
