package macro

import (
	"math/rand"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
)

// EnvParams tunes the economic environment.
type EnvParams struct {
	InflationStart   float64 `yaml:"inflation_start"`
	InflationDrift   float64 `yaml:"inflation_drift"`
	CurrencyDrift    float64 `yaml:"currency_drift"`
	ShockProbability float64 `yaml:"shock_probability"`
	ShockSize        float64 `yaml:"shock_size"`
	BoomThreshold    float64 `yaml:"boom_threshold"`
	RecessionBelow   float64 `yaml:"recession_below"`
	InflationAbove   float64 `yaml:"inflation_above"`
}

// DefaultEnvParams returns the stock economy.
func DefaultEnvParams() EnvParams {
	return EnvParams{
		InflationStart:   0.02,
		InflationDrift:   0.0005,
		CurrencyDrift:    0.002,
		ShockProbability: 0.02,
		ShockSize:        0.05,
		BoomThreshold:    1.1,
		RecessionBelow:   0.9,
		InflationAbove:   0.05,
	}
}

// Snapshot is a read-only copy of the economic factors.
type Snapshot struct {
	InflationRate    float64 `json:"inflation_rate"`
	CurrencyStrength float64 `json:"currency_strength"`
}

// Signals are the coarse macro conditions firms react to.
type Signals struct {
	Boom      bool `json:"boom"`
	Recession bool `json:"recession"`
	Inflation bool `json:"inflation"`
}

// Shock describes a sudden change of the economic factors.
type Shock struct {
	InflationDelta float64 `json:"inflation_delta"`
	CurrencyDelta  float64 `json:"currency_delta"`
}

// Severity scores the shock in [-1,1]. It is negative when inflation rises
// faster than the currency strengthens.
func (s Shock) Severity() float64 {
	v := s.CurrencyDelta - s.InflationDelta
	return calculator.Clamp(v*10, -1, 1)
}

// Environment holds the slowly drifting macro scalars.
type Environment struct {
	state  Snapshot
	params EnvParams
	rng    *rand.Rand
}

// NewEnvironment returns an environment at neutral currency strength.
func NewEnvironment(params EnvParams, rng *rand.Rand) *Environment {
	return &Environment{
		state:  Snapshot{InflationRate: params.InflationStart, CurrencyStrength: 1},
		params: params,
		rng:    rng,
	}
}

// Snapshot returns the current factors.
func (e *Environment) Snapshot() Snapshot {
	return e.state
}

// Restore sets the factors, e.g. when resuming.
func (e *Environment) Restore(s Snapshot) {
	e.state = s
}

// Step drifts the factors and occasionally applies a shock, which it returns.
func (e *Environment) Step() *Shock {
	p := e.params
	e.state.InflationRate += e.rng.NormFloat64() * p.InflationDrift
	e.state.CurrencyStrength += e.rng.NormFloat64() * p.CurrencyDrift

	var shock *Shock
	if e.rng.Float64() < p.ShockProbability {
		shock = &Shock{
			InflationDelta: e.rng.NormFloat64() * p.ShockSize / 2,
			CurrencyDelta:  e.rng.NormFloat64() * p.ShockSize,
		}
		e.state.InflationRate += shock.InflationDelta
		e.state.CurrencyStrength += shock.CurrencyDelta
	}

	e.state.InflationRate = calculator.Clamp(e.state.InflationRate, -0.05, 0.25)
	e.state.CurrencyStrength = calculator.Clamp(e.state.CurrencyStrength, 0.5, 1.5)
	return shock
}

// Signals derives the coarse conditions from the current factors.
func (e *Environment) Signals() Signals {
	return SignalsFor(e.state, e.params)
}

// SignalsFor derives signals from a snapshot.
func SignalsFor(s Snapshot, p EnvParams) Signals {
	return Signals{
		Boom:      s.CurrencyStrength >= p.BoomThreshold && s.InflationRate < p.InflationAbove,
		Recession: s.CurrencyStrength <= p.RecessionBelow,
		Inflation: s.InflationRate >= p.InflationAbove,
	}
}
