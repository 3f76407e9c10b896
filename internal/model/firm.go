package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyTag selects a firm's trading behavior.
type StrategyTag string

const (
	StrategyMomentum   StrategyTag = "momentum"
	StrategyContrarian StrategyTag = "contrarian"
	StrategyGrowth     StrategyTag = "growth"
	StrategyVolatility StrategyTag = "volatility"
	StrategyRandom     StrategyTag = "balanced-random"
)

// StrategyTags lists every supported tag.
var StrategyTags = []StrategyTag{
	StrategyMomentum, StrategyContrarian, StrategyGrowth, StrategyVolatility, StrategyRandom,
}

// ParseStrategy validates a strategy tag.
func ParseStrategy(s string) (StrategyTag, error) {
	for _, tag := range StrategyTags {
		if string(tag) == s {
			return tag, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// MemoryDepth is the number of trade prices a firm remembers per ticker.
const MemoryDepth = 10

// Outcome labels the result of the latest trade on a ticker.
type Outcome string

const (
	OutcomeNone  Outcome = ""
	OutcomeEntry Outcome = "entry"
	OutcomeGain  Outcome = "gain"
	OutcomeLoss  Outcome = "loss"
	OutcomeFlat  Outcome = "flat"
)

// Emotion is a firm's mood vector; every component stays in [0,1].
type Emotion struct {
	Confidence  float64 `json:"confidence"`
	Frustration float64 `json:"frustration"`
	Greed       float64 `json:"greed"`
	Regret      float64 `json:"regret"`
}

// NeutralEmotion is the resting point emotions decay toward.
func NeutralEmotion() Emotion {
	return Emotion{Confidence: 0.5, Frustration: 0.5, Greed: 0.5, Regret: 0.5}
}

// TickerMemory is a firm's rolling memory for one ticker.
type TickerMemory struct {
	Prices      []float64 `json:"prices"`
	LastOutcome Outcome   `json:"last_outcome"`
}

// Remember appends a trade price, keeping the newest MemoryDepth entries.
func (m *TickerMemory) Remember(price float64) {
	m.Prices = append(m.Prices, price)
	if len(m.Prices) > MemoryDepth {
		m.Prices = m.Prices[len(m.Prices)-MemoryDepth:]
	}
}

// FirmTrade is one entry of a firm's append-only transaction log.
type FirmTrade struct {
	Tick    int64           `json:"tick"`
	Side    Side            `json:"side"`
	Ticker  string          `json:"ticker"`
	Shares  int64           `json:"shares"`
	Price   float64         `json:"price"`
	Total   decimal.Decimal `json:"total"`
	Outcome Outcome         `json:"outcome"`
}

// Firm is an autonomous trading agent. Firms are created at bootstrap and
// never deleted.
type Firm struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Strategy         StrategyTag              `json:"strategy"`
	RiskTolerance    float64                  `json:"risk_tolerance"`
	TradingFrequency int64                    `json:"trading_frequency"`
	Cash             decimal.Decimal          `json:"cash"`
	Holdings         map[string]int64         `json:"holdings"`
	Transactions     []FirmTrade              `json:"transactions"`
	Emotion          Emotion                  `json:"emotion"`
	Memory           map[string]*TickerMemory `json:"memory"`
	LastTradeTick    int64                    `json:"last_trade_tick"`
}

// NewFirm builds a firm with every optional field initialized.
func NewFirm(id, name string, strategy StrategyTag, risk float64, frequency int64, cash decimal.Decimal) *Firm {
	return &Firm{
		ID:               id,
		Name:             name,
		Strategy:         strategy,
		RiskTolerance:    risk,
		TradingFrequency: frequency,
		Cash:             cash,
		Holdings:         make(map[string]int64),
		Emotion:          NeutralEmotion(),
		Memory:           make(map[string]*TickerMemory),
		LastTradeTick:    -frequency,
	}
}

// EnsureDefaults fills maps that may be absent on records persisted by
// older builds.
func (f *Firm) EnsureDefaults() {
	if f.Holdings == nil {
		f.Holdings = make(map[string]int64)
	}
	if f.Memory == nil {
		f.Memory = make(map[string]*TickerMemory)
	}
}

// MemoryFor returns the memory for ticker, creating it if needed.
func (f *Firm) MemoryFor(ticker string) *TickerMemory {
	f.EnsureDefaults()
	m, ok := f.Memory[ticker]
	if !ok {
		m = &TickerMemory{}
		f.Memory[ticker] = m
	}
	return m
}

// CanTrade reports whether enough ticks have passed since the last trade.
func (f *Firm) CanTrade(tick int64) bool {
	return tick-f.LastTradeTick >= f.TradingFrequency
}

// NetWorth values cash plus holdings at the given prices.
func (f *Firm) NetWorth(prices map[string]float64) decimal.Decimal {
	total := f.Cash
	for ticker, shares := range f.Holdings {
		price, ok := prices[ticker]
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares)))
	}
	return total
}

// FirmSummary is the compact listing view of a firm.
type FirmSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Strategy      StrategyTag     `json:"strategy"`
	Cash          decimal.Decimal `json:"cash"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	Positions     int             `json:"positions"`
	Trades        int             `json:"trades"`
	Emotion       Emotion         `json:"emotion"`
	LastTradeTick int64           `json:"last_trade_tick"`
}

// Summary builds the listing view using current prices.
func (f *Firm) Summary(prices map[string]float64) FirmSummary {
	return FirmSummary{
		ID:            f.ID,
		Name:          f.Name,
		Strategy:      f.Strategy,
		Cash:          f.Cash,
		NetWorth:      f.NetWorth(prices),
		Positions:     len(f.Holdings),
		Trades:        len(f.Transactions),
		Emotion:       f.Emotion,
		LastTradeTick: f.LastTradeTick,
	}
}
