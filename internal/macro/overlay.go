package macro

import (
	"math"
	"math/rand"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

// MomentumBound limits the macro momentum random walk.
const MomentumBound = 3.0

// OverlayParams tunes the market-wide volatility overlay.
type OverlayParams struct {
	Step      float64 `yaml:"step"`
	Amplitude float64 `yaml:"amplitude"`
	IdioNoise float64 `yaml:"idio_noise"`
}

// DefaultOverlayParams keeps the multiplier within [0.85, 1.15].
func DefaultOverlayParams() OverlayParams {
	return OverlayParams{Step: 0.15, Amplitude: 0.15, IdioNoise: 0.0005}
}

// Overlay holds the process-wide macro momentum. It never touches price.
type Overlay struct {
	Momentum float64
	params   OverlayParams
	rng      *rand.Rand
}

// NewOverlay returns an overlay starting at zero momentum.
func NewOverlay(params OverlayParams, rng *rand.Rand) *Overlay {
	return &Overlay{params: params, rng: rng}
}

// Step advances the momentum walk and returns the new value.
func (o *Overlay) Step() float64 {
	o.Momentum = calculator.Clamp(o.Momentum+o.rng.NormFloat64()*o.params.Step, -MomentumBound, MomentumBound)
	return o.Momentum
}

// Multiplier maps momentum onto the volatility multiplier.
func (o *Overlay) Multiplier() float64 {
	return 1 + o.params.Amplitude*math.Tanh(o.Momentum)
}

// Compute steps the walk once and emits a volatility increment for every
// instrument in snapshot.
func (o *Overlay) Compute(snapshot []model.Instrument) map[string]*patch.Patch {
	o.Step()
	mult := o.Multiplier()
	out := make(map[string]*patch.Patch, len(snapshot))
	for i := range snapshot {
		inst := &snapshot[i]
		noise := math.Abs(o.rng.NormFloat64()) * o.params.IdioNoise
		target := model.ClampVolatility(inst.Volatility*mult + noise)
		if dv := target - inst.Volatility; dv != 0 {
			out[inst.Ticker] = patch.New().Add(patch.Volatility, dv)
		}
	}
	return out
}
