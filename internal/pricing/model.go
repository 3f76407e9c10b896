package pricing

import (
	"math"
	"math/rand"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
	"github.com/TheFaucett/stock-game-sub000/internal/profile"
)

// Model computes the next price, anchor, drift, volatility and history for
// every instrument under the active profile. It keeps the per-sector bias
// random walk between ticks. A Model is not safe for concurrent use.
type Model struct {
	rng     *rand.Rand
	profile string
	bias    map[string]float64
}

// New returns a model drawing from rng.
func New(rng *rand.Rand) *Model {
	return &Model{rng: rng, bias: make(map[string]float64)}
}

// SectorBias returns the current bias for sector, if it has been walked.
func (m *Model) SectorBias(sector string) (float64, bool) {
	b, ok := m.bias[sector]
	return b, ok
}

// Biases returns a copy of the sector walk, keyed by sector.
func (m *Model) Biases() map[string]float64 {
	out := make(map[string]float64, len(m.bias))
	for k, v := range m.bias {
		out[k] = v
	}
	return out
}

// Restore resumes the sector walk recorded under profile. A later Compute
// under a different profile discards it.
func (m *Model) Restore(profile string, bias map[string]float64) {
	m.profile = profile
	m.bias = make(map[string]float64, len(bias))
	for k, v := range bias {
		m.bias[k] = v
	}
}

// Compute emits one patch per instrument in snapshot. The snapshot is not
// modified.
func (m *Model) Compute(snapshot []model.Instrument, p profile.Profile) map[string]*patch.Patch {
	if p.Name != m.profile {
		m.profile = p.Name
		m.bias = make(map[string]float64)
	}
	m.walkSectors(snapshot, p)

	out := make(map[string]*patch.Patch, len(snapshot))
	for i := range snapshot {
		inst := &snapshot[i]
		if inst.Price <= 0 {
			continue
		}
		out[inst.Ticker] = m.step(inst, p)
	}
	return out
}

func (m *Model) walkSectors(snapshot []model.Instrument, p profile.Profile) {
	seen := make(map[string]bool)
	for i := range snapshot {
		sector := snapshot[i].Sector
		if seen[sector] {
			continue
		}
		seen[sector] = true
		b, ok := m.bias[sector]
		if !ok {
			b = p.InitialBias(sector)
		}
		b += m.rng.NormFloat64() * p.SectorStep
		m.bias[sector] = calculator.Clamp(b, -p.SectorClamp, p.SectorClamp)
	}
}

func (m *Model) step(inst *model.Instrument, p profile.Profile) *patch.Patch {
	anchor := inst.Anchor
	if anchor <= 0 {
		anchor = inst.Price
	}
	vol := inst.Volatility
	if vol <= 0 {
		vol = p.VolatilityBase
	}

	drift := inst.Drift + (m.rng.Float64()*2-1)*p.DriftStep
	drift = calculator.Clamp(drift, -p.DriftClamp, p.DriftClamp)

	reversion := p.MeanRevertAlpha * (anchor - inst.Price) / inst.Price
	shock := m.rng.NormFloat64() * vol * p.ShockScale
	change := p.TickDrift() + reversion + shock + m.bias[inst.Sector] + drift
	change = calculator.Clamp(change, -p.MaxMovePerTick, p.MaxMovePerTick)

	price := math.Max(inst.Price*(1+change), model.MinPrice)
	anchor += p.BaseBlend * (price - anchor)

	vol += p.VolatilityDecay*(p.VolatilityBase-vol) + (m.rng.Float64()*2-1)*p.VolatilityNoise
	vol = calculator.Clamp(vol, p.VolatilityClamp.Lo, p.VolatilityClamp.Hi)
	vol = model.ClampVolatility(vol)

	return patch.New().
		Assign(patch.Price, price).
		Assign(patch.Anchor, anchor).
		Assign(patch.Drift, drift).
		Assign(patch.Volatility, vol).
		Append(patch.History, p.HistoryLimit, price)
}
