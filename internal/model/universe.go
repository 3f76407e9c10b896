package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InstrumentSeed describes an instrument created at bootstrap.
type InstrumentSeed struct {
	Ticker            string  `yaml:"ticker"`
	Name              string  `yaml:"name"`
	Sector            string  `yaml:"sector"`
	Price             float64 `yaml:"price"`
	Volatility        float64 `yaml:"volatility"`
	EPS               float64 `yaml:"eps"`
	DividendYield     float64 `yaml:"dividend_yield"`
	OutstandingShares int64   `yaml:"outstanding_shares"`
}

// Instrument builds a fresh instrument whose history starts at its price.
func (s InstrumentSeed) Instrument(tick int64) (*Instrument, error) {
	if s.Ticker == "" {
		return nil, fmt.Errorf("instrument seed without ticker: %w", ErrMalformedRecord)
	}
	if s.Price < MinPrice {
		return nil, fmt.Errorf("instrument %s price %.4f: %w", s.Ticker, s.Price, ErrMalformedRecord)
	}
	vol := s.Volatility
	if vol == 0 {
		vol = 0.02
	}
	return &Instrument{
		Ticker:            s.Ticker,
		Name:              s.Name,
		Sector:            s.Sector,
		Price:             s.Price,
		Volatility:        ClampVolatility(vol),
		Anchor:            s.Price,
		History:           []float64{s.Price},
		OutstandingShares: s.OutstandingShares,
		EPS:               s.EPS,
		DividendYield:     s.DividendYield,
		UpdatedTick:       tick,
	}, nil
}

// FirmSeed describes a firm created at bootstrap.
type FirmSeed struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Strategy         string  `yaml:"strategy"`
	RiskTolerance    float64 `yaml:"risk_tolerance"`
	TradingFrequency int64   `yaml:"trading_frequency"`
	Cash             float64 `yaml:"cash"`
}

// Firm builds a fresh firm with neutral emotion.
func (s FirmSeed) Firm() (*Firm, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("firm seed without id: %w", ErrMalformedRecord)
	}
	tag, err := ParseStrategy(s.Strategy)
	if err != nil {
		return nil, fmt.Errorf("firm %s: %w", s.ID, err)
	}
	if s.RiskTolerance <= 0 || s.RiskTolerance > 1 {
		return nil, fmt.Errorf("firm %s risk tolerance %.2f: %w", s.ID, s.RiskTolerance, ErrMalformedRecord)
	}
	freq := s.TradingFrequency
	if freq <= 0 {
		freq = 1
	}
	name := s.Name
	if name == "" {
		name = s.ID
	}
	return NewFirm(s.ID, name, tag, s.RiskTolerance, freq, decimal.NewFromFloat(s.Cash)), nil
}

// Universe is the set of instruments and firms a simulation starts with.
type Universe struct {
	Instruments []InstrumentSeed `yaml:"instruments"`
	Firms       []FirmSeed       `yaml:"firms"`
}
