package model

import "math"

// Global numeric bounds shared by every layer that touches an instrument.
const (
	VolMin   = 0.005
	VolMax   = 0.25
	MinPrice = 0.01
)

// Instrument is one tradable ticker. It is mutated once per tick, only
// through a merged patch.
type Instrument struct {
	Ticker            string    `json:"ticker"`
	Name              string    `json:"name"`
	Sector            string    `json:"sector"`
	Price             float64   `json:"price"`
	LastChange        float64   `json:"last_change"` // percent
	Volatility        float64   `json:"volatility"`
	Anchor            float64   `json:"anchor"` // fair-value base for mean reversion
	Drift             float64   `json:"drift"`  // idiosyncratic per-tick drift
	History           []float64 `json:"history"`
	OutstandingShares int64     `json:"outstanding_shares"`
	EPS               float64   `json:"eps"`
	DividendYield     float64   `json:"dividend_yield"`
	UpdatedTick       int64     `json:"updated_tick"`
}

// InstrumentView is the read-only snapshot exposed to callers.
type InstrumentView struct {
	Ticker     string    `json:"ticker"`
	Price      float64   `json:"price"`
	Change     float64   `json:"change"`
	Sector     string    `json:"sector"`
	Volatility float64   `json:"volatility"`
	History    []float64 `json:"history"`
}

// View returns a detached snapshot of the instrument.
func (i *Instrument) View() InstrumentView {
	return InstrumentView{
		Ticker:     i.Ticker,
		Price:      i.Price,
		Change:     i.LastChange,
		Sector:     i.Sector,
		Volatility: i.Volatility,
		History:    append([]float64(nil), i.History...),
	}
}

// ClampVolatility bounds v to [VolMin, VolMax].
func ClampVolatility(v float64) float64 {
	if math.IsNaN(v) {
		return VolMin
	}
	return math.Max(VolMin, math.Min(VolMax, v))
}

// PriceMap indexes instrument prices by ticker.
func PriceMap(instruments []Instrument) map[string]float64 {
	prices := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		prices[inst.Ticker] = inst.Price
	}
	return prices
}
