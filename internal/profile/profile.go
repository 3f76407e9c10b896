package profile

import (
	"fmt"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Range is a closed interval.
type Range struct {
	Lo float64 `yaml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" json:"hi"`
}

// Profile is a named bundle of price and volatility constants describing a
// market regime.
type Profile struct {
	Name            string             `yaml:"name" json:"name"`
	Description     string             `yaml:"description" json:"description"`
	AnnualDrift     float64            `yaml:"annual_drift" json:"annual_drift"`
	TicksPerYear    float64            `yaml:"ticks_per_year" json:"ticks_per_year"`
	MeanRevertAlpha float64            `yaml:"mean_revert_alpha" json:"mean_revert_alpha"`
	BaseBlend       float64            `yaml:"base_blend" json:"base_blend"`
	ShockScale      float64            `yaml:"shock_scale" json:"shock_scale"`
	VolatilityBase  float64            `yaml:"volatility_base" json:"volatility_base"`
	VolatilityClamp Range              `yaml:"volatility_clamp" json:"volatility_clamp"`
	VolatilityNoise float64            `yaml:"volatility_noise" json:"volatility_noise"`
	VolatilityDecay float64            `yaml:"volatility_decay" json:"volatility_decay"`
	MaxMovePerTick  float64            `yaml:"max_move_per_tick" json:"max_move_per_tick"`
	SectorBias      map[string]float64 `yaml:"sector_bias" json:"sector_bias"`
	DefaultBias     float64            `yaml:"default_bias" json:"default_bias"`
	SectorStep      float64            `yaml:"sector_step" json:"sector_step"`
	SectorClamp     float64            `yaml:"sector_clamp" json:"sector_clamp"`
	DriftStep       float64            `yaml:"drift_step" json:"drift_step"`
	DriftClamp      float64            `yaml:"drift_clamp" json:"drift_clamp"`
	HistoryLimit    int                `yaml:"history_limit" json:"history_limit"`
}

// TickDrift is the deterministic per-tick drift.
func (p Profile) TickDrift() float64 {
	return p.AnnualDrift / p.TicksPerYear
}

// InitialBias returns the starting sector bias for sector.
func (p Profile) InitialBias(sector string) float64 {
	if b, ok := p.SectorBias[sector]; ok {
		return b
	}
	return p.DefaultBias
}

// Validate rejects constant sets that would break the global invariants.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.TicksPerYear <= 0 {
		return fmt.Errorf("profile %s: ticks_per_year must be positive", p.Name)
	}
	if p.MaxMovePerTick <= 0 || p.MaxMovePerTick >= 1 {
		return fmt.Errorf("profile %s: max_move_per_tick must be in (0,1)", p.Name)
	}
	c := p.VolatilityClamp
	if c.Lo < model.VolMin || c.Hi > model.VolMax || c.Lo > c.Hi {
		return fmt.Errorf("profile %s: volatility_clamp [%g,%g] outside [%g,%g]",
			p.Name, c.Lo, c.Hi, model.VolMin, model.VolMax)
	}
	if p.VolatilityBase < c.Lo || p.VolatilityBase > c.Hi {
		return fmt.Errorf("profile %s: volatility_base outside volatility_clamp", p.Name)
	}
	if p.BaseBlend < 0 || p.BaseBlend > 1 {
		return fmt.Errorf("profile %s: base_blend must be in [0,1]", p.Name)
	}
	if p.VolatilityDecay < 0 || p.VolatilityDecay > 1 {
		return fmt.Errorf("profile %s: volatility_decay must be in [0,1]", p.Name)
	}
	if p.SectorClamp < 0 || p.DriftClamp < 0 || p.SectorStep < 0 || p.DriftStep < 0 {
		return fmt.Errorf("profile %s: walk steps and clamps must be non-negative", p.Name)
	}
	if p.HistoryLimit <= 0 {
		return fmt.Errorf("profile %s: history_limit must be positive", p.Name)
	}
	return nil
}

// Builtins returns the shipped regimes. Each call returns fresh copies.
func Builtins() []Profile {
	base := func(name, desc string) Profile {
		return Profile{
			Name:            name,
			Description:     desc,
			AnnualDrift:     0.04,
			TicksPerYear:    365,
			MeanRevertAlpha: 0.01,
			BaseBlend:       0.1,
			ShockScale:      0.25,
			VolatilityBase:  0.02,
			VolatilityClamp: Range{Lo: 0.005, Hi: 0.08},
			VolatilityNoise: 0.001,
			VolatilityDecay: 0.05,
			MaxMovePerTick:  0.05,
			SectorBias:      map[string]float64{},
			DefaultBias:     0.0001,
			SectorStep:      0.00002,
			SectorClamp:     0.0004,
			DriftStep:       0.00001,
			DriftClamp:      0.0002,
			HistoryLimit:    365,
		}
	}

	def := base("default", "steady growth with mild noise")
	def.DefaultBias = 0.0003
	def.SectorClamp = 0.0008
	def.SectorBias = map[string]float64{"Technology": 0.00035, "Healthcare": 0.00032, "Energy": 0.00025}

	bull := base("bull", "strong upward drift, sectors lean positive")
	bull.AnnualDrift = 0.18
	bull.DefaultBias = 0.0003
	bull.SectorClamp = 0.0008

	bear := base("bear", "persistent decline with elevated volatility")
	bear.AnnualDrift = -0.15
	bear.DefaultBias = -0.0003
	bear.SectorClamp = 0.0008
	bear.VolatilityBase = 0.03
	bear.VolatilityClamp = Range{Lo: 0.01, Hi: 0.1}

	command := base("command", "command economy: tiny noise, strong reversion")
	command.AnnualDrift = 0.02
	command.MeanRevertAlpha = 0.2
	command.BaseBlend = 0.01
	command.ShockScale = 0.05
	command.VolatilityBase = 0.006
	command.VolatilityClamp = Range{Lo: 0.005, Hi: 0.01}
	command.VolatilityNoise = 0.0002
	command.MaxMovePerTick = 0.01
	command.DefaultBias = 0
	command.SectorStep = 0
	command.DriftStep = 0

	crisis := base("crisis", "sharp drawdowns, volatility near the ceiling")
	crisis.AnnualDrift = -0.4
	crisis.ShockScale = 0.6
	crisis.VolatilityBase = 0.12
	crisis.VolatilityClamp = Range{Lo: 0.05, Hi: 0.25}
	crisis.VolatilityNoise = 0.01
	crisis.MaxMovePerTick = 0.15
	crisis.DefaultBias = -0.001
	crisis.SectorStep = 0.0002
	crisis.SectorClamp = 0.003

	bubble := base("bubble", "runaway optimism, weak reversion")
	bubble.AnnualDrift = 0.6
	bubble.MeanRevertAlpha = 0.001
	bubble.BaseBlend = 0.3
	bubble.ShockScale = 0.35
	bubble.VolatilityBase = 0.04
	bubble.VolatilityClamp = Range{Lo: 0.01, Hi: 0.12}
	bubble.MaxMovePerTick = 0.08
	bubble.DefaultBias = 0.001
	bubble.SectorClamp = 0.002

	chaotic := base("chaotic", "no drift, large shocks, noisy volatility")
	chaotic.AnnualDrift = 0
	chaotic.ShockScale = 0.8
	chaotic.VolatilityBase = 0.08
	chaotic.VolatilityClamp = Range{Lo: 0.02, Hi: 0.25}
	chaotic.VolatilityNoise = 0.02
	chaotic.VolatilityDecay = 0.01
	chaotic.MaxMovePerTick = 0.2
	chaotic.DefaultBias = 0
	chaotic.SectorStep = 0.0005
	chaotic.SectorClamp = 0.004
	chaotic.DriftStep = 0.0001
	chaotic.DriftClamp = 0.002

	return []Profile{def, bull, bear, command, crisis, bubble, chaotic}
}
