package recorder

import "github.com/TheFaucett/stock-game-sub000/internal/model"

// TickEvent summarizes one pipeline pass.
type TickEvent struct {
	Tick             int64   `json:"tick"`
	Profile          string  `json:"profile"`
	Momentum         float64 `json:"momentum"`
	InflationRate    float64 `json:"inflation_rate"`
	CurrencyStrength float64 `json:"currency_strength"`
	Shock            bool    `json:"shock"`
	NewsItems        int     `json:"news_items"`
	Patched          int     `json:"patched"`
	PatchFailures    int     `json:"patch_failures"`
	Trades           int     `json:"trades"`
	OptionsSettled   int     `json:"options_settled"`
	LoanPayments     int     `json:"loan_payments"`
	Mood             float64 `json:"mood"`
	Index            float64 `json:"index"`
	DurationMs       int64   `json:"duration_ms"`

	SectorBias map[string]float64 `json:"sector_bias,omitempty"`
}

// Recorder persists aggregate history so a restarted engine can resume.
type Recorder interface {
	RecordMood(s model.Sample) error
	RecordIndex(s model.Sample) error
	RecordTick(evt *TickEvent) error
	LoadMood(limit int) ([]model.Sample, error)
	LoadIndex(limit int) ([]model.Sample, error)
	LastTick() (*TickEvent, error)
	Close() error
}
