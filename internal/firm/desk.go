package firm

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Params tunes emotional drift.
type Params struct {
	EmotionStep float64 `yaml:"emotion_step"`
	DecayRate   float64 `yaml:"decay_rate"`
	ShockNudge  float64 `yaml:"shock_nudge"`
}

// DefaultParams returns the stock emotional constants.
func DefaultParams() Params {
	return Params{EmotionStep: 0.05, DecayRate: 0.1, ShockNudge: 0.05}
}

// Result reports what one firm did in one pass.
type Result struct {
	FirmID  string            `json:"firm_id"`
	Skipped bool              `json:"skipped"`
	Trades  []model.FirmTrade `json:"trades"`
}

// Desk runs firms against a price snapshot. A Desk holds no per-firm state
// and may be shared by goroutines acting on different firms.
type Desk struct {
	params     Params
	strategies map[model.StrategyTag]Strategy
}

// NewDesk returns a desk with every built-in strategy.
func NewDesk(params Params) *Desk {
	return &Desk{params: params, strategies: Strategies()}
}

// Act lets f trade once against snapshot if its cadence allows. Buy and
// sell rolls are independent, so both sides may fire in one pass.
func (d *Desk) Act(f *model.Firm, snapshot []model.Instrument, tick int64, sig macro.Signals, rng *rand.Rand) (Result, error) {
	f.EnsureDefaults()
	res := Result{FirmID: f.ID}
	if !f.CanTrade(tick) {
		res.Skipped = true
		return res, nil
	}
	strat, ok := d.strategies[f.Strategy]
	if !ok {
		return res, fmt.Errorf("firm %s: unknown strategy %q", f.ID, f.Strategy)
	}

	intent := strat.Decide(Decision{Firm: f, Snapshot: snapshot, Signals: sig, Rng: rng})
	buyRoll, sellRoll := rng.Float64(), rng.Float64()
	prices := index(snapshot)

	if intent.Buy != "" && buyRoll < intent.BuyBias {
		if tr, ok := d.Buy(f, intent.Buy, prices[intent.Buy], tick); ok {
			res.Trades = append(res.Trades, tr)
		}
	}
	if intent.Sell != "" && sellRoll < intent.SellBias {
		if tr, ok := d.Sell(f, intent.Sell, prices[intent.Sell], tick); ok {
			res.Trades = append(res.Trades, tr)
		}
	}

	if len(res.Trades) > 0 {
		f.LastTradeTick = tick
	} else {
		d.decay(&f.Emotion)
	}
	return res, nil
}

func index(snapshot []model.Instrument) map[string]float64 {
	prices := make(map[string]float64, len(snapshot))
	for i := range snapshot {
		prices[snapshot[i].Ticker] = snapshot[i].Price
	}
	return prices
}

// Buy spends floor(cash * risk / price) shares of ticker. It reports false
// when the size rounds to zero.
func (d *Desk) Buy(f *model.Firm, ticker string, price float64, tick int64) (model.FirmTrade, bool) {
	if price <= 0 {
		return model.FirmTrade{}, false
	}
	p := decimal.NewFromFloat(price)
	shares := f.Cash.Mul(decimal.NewFromFloat(f.RiskTolerance)).Div(p).Floor().IntPart()
	if shares <= 0 {
		return model.FirmTrade{}, false
	}
	total := p.Mul(decimal.NewFromInt(shares))
	if total.GreaterThan(f.Cash) {
		return model.FirmTrade{}, false
	}

	f.Cash = f.Cash.Sub(total)
	f.Holdings[ticker] += shares
	mem := f.MemoryFor(ticker)
	mem.Remember(price)
	mem.LastOutcome = model.OutcomeEntry

	tr := model.FirmTrade{Tick: tick, Side: model.SideBuy, Ticker: ticker, Shares: shares, Price: price, Total: total, Outcome: model.OutcomeEntry}
	f.Transactions = append(f.Transactions, tr)
	return tr, true
}

// Sell liquidates ceil(owned * risk) shares of ticker and updates emotion
// from the realized outcome against the oldest remembered price.
func (d *Desk) Sell(f *model.Firm, ticker string, price float64, tick int64) (model.FirmTrade, bool) {
	owned := f.Holdings[ticker]
	if owned <= 0 || price <= 0 {
		return model.FirmTrade{}, false
	}
	shares := decimal.NewFromInt(owned).Mul(decimal.NewFromFloat(f.RiskTolerance)).Ceil().IntPart()
	if shares > owned {
		shares = owned
	}
	if shares <= 0 {
		return model.FirmTrade{}, false
	}

	mem := f.MemoryFor(ticker)
	outcome := model.OutcomeFlat
	if len(mem.Prices) > 0 {
		switch entry := mem.Prices[0]; {
		case price > entry:
			outcome = model.OutcomeGain
		case price < entry:
			outcome = model.OutcomeLoss
		}
	}
	mem.Remember(price)
	mem.LastOutcome = outcome
	d.react(&f.Emotion, outcome)

	total := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
	f.Cash = f.Cash.Add(total)
	f.Holdings[ticker] = owned - shares
	if f.Holdings[ticker] == 0 {
		delete(f.Holdings, ticker)
	}

	tr := model.FirmTrade{Tick: tick, Side: model.SideSell, Ticker: ticker, Shares: shares, Price: price, Total: total, Outcome: outcome}
	f.Transactions = append(f.Transactions, tr)
	return tr, true
}

func (d *Desk) react(e *model.Emotion, outcome model.Outcome) {
	step := d.params.EmotionStep
	switch outcome {
	case model.OutcomeGain:
		shift(e, step, step, -step, -step)
	case model.OutcomeLoss:
		shift(e, -step, -step, step, step)
	}
}

func (d *Desk) decay(e *model.Emotion) {
	r := d.params.DecayRate
	e.Confidence += (0.5 - e.Confidence) * r
	e.Greed += (0.5 - e.Greed) * r
	e.Frustration += (0.5 - e.Frustration) * r
	e.Regret += (0.5 - e.Regret) * r
	shift(e, 0, 0, 0, 0)
}

// Nudge applies the emotional effect of a macro shock. Good shocks lift
// confidence and greed; bad shocks lift frustration and regret.
func (d *Desk) Nudge(f *model.Firm, shock macro.Shock) {
	s := shock.Severity() * d.params.ShockNudge
	shift(&f.Emotion, s, s*0.6, -s, -s*0.6)
}

func shift(e *model.Emotion, confidence, greed, frustration, regret float64) {
	e.Confidence = calculator.Clamp(e.Confidence+confidence, 0, 1)
	e.Greed = calculator.Clamp(e.Greed+greed, 0, 1)
	e.Frustration = calculator.Clamp(e.Frustration+frustration, 0, 1)
	e.Regret = calculator.Clamp(e.Regret+regret, 0, 1)
}
