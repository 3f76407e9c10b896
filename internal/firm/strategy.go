package firm

import (
	"math/rand"
	"sort"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Decision is everything a strategy may look at.
type Decision struct {
	Firm     *model.Firm
	Snapshot []model.Instrument
	Signals  macro.Signals
	Rng      *rand.Rand
}

// Intent is a strategy's proposal: candidates plus the probability of
// acting on each side. An empty ticker means no candidate.
type Intent struct {
	Buy      string
	Sell     string
	BuyBias  float64
	SellBias float64
}

// Strategy picks trade candidates for one firm.
type Strategy interface {
	Decide(in Decision) Intent
}

// Biases derives buy and sell probabilities from a firm's emotion and the
// macro signals. Buying grows more likely and selling less likely as
// confidence rises.
func Biases(e model.Emotion, sig macro.Signals) (buy, sell float64) {
	buy = 0.3 + 0.4*e.Confidence + 0.1*(e.Greed-0.5)
	sell = 0.5 - 0.3*e.Confidence + 0.1*(e.Frustration-0.5)
	if sig.Boom {
		buy += 0.1
		sell -= 0.05
	}
	if sig.Recession {
		buy -= 0.15
		sell += 0.1
	}
	if sig.Inflation {
		buy -= 0.05
		sell += 0.05
	}
	return calculator.Clamp(buy, 0, 1), calculator.Clamp(sell, 0, 1)
}

// score ranks an instrument; higher is preferred for buying.
type score func(inst *model.Instrument) float64

// ranked implements the deterministic strategies: buy the highest score,
// sell the owned ticker with the lowest score.
type ranked struct {
	score score
}

func (r ranked) Decide(in Decision) Intent {
	buy, sell := Biases(in.Firm.Emotion, in.Signals)
	intent := Intent{BuyBias: buy, SellBias: sell}

	best, worst := -1, -1
	for i := range in.Snapshot {
		inst := &in.Snapshot[i]
		if inst.Price <= 0 {
			continue
		}
		if best < 0 || r.score(inst) > r.score(&in.Snapshot[best]) {
			best = i
		}
		if in.Firm.Holdings[inst.Ticker] > 0 {
			if worst < 0 || r.score(inst) < r.score(&in.Snapshot[worst]) {
				worst = i
			}
		}
	}
	if best >= 0 {
		intent.Buy = in.Snapshot[best].Ticker
	}
	if worst >= 0 {
		intent.Sell = in.Snapshot[worst].Ticker
	}
	return intent
}

// random picks both candidates uniformly.
type random struct{}

func (random) Decide(in Decision) Intent {
	buy, sell := Biases(in.Firm.Emotion, in.Signals)
	intent := Intent{BuyBias: buy, SellBias: sell}

	var live []string
	for i := range in.Snapshot {
		if in.Snapshot[i].Price > 0 {
			live = append(live, in.Snapshot[i].Ticker)
		}
	}
	if len(live) > 0 {
		intent.Buy = live[in.Rng.Intn(len(live))]
	}
	owned := ownedTickers(in.Firm)
	if len(owned) > 0 {
		intent.Sell = owned[in.Rng.Intn(len(owned))]
	}
	return intent
}

func ownedTickers(f *model.Firm) []string {
	out := make([]string, 0, len(f.Holdings))
	for t, n := range f.Holdings {
		if n > 0 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Strategies returns one implementation per strategy tag.
func Strategies() map[model.StrategyTag]Strategy {
	return map[model.StrategyTag]Strategy{
		model.StrategyMomentum:   ranked{score: func(i *model.Instrument) float64 { return i.LastChange }},
		model.StrategyContrarian: ranked{score: func(i *model.Instrument) float64 { return -i.LastChange }},
		model.StrategyGrowth:     ranked{score: func(i *model.Instrument) float64 { return i.EPS }},
		model.StrategyVolatility: ranked{score: func(i *model.Instrument) float64 { return i.Volatility }},
		model.StrategyRandom:     random{},
	}
}
