package news

import (
	"math"
	"math/rand"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

// GlobalTarget addresses every instrument.
const GlobalTarget = "global"

// Scope says what kind of target an item names.
type Scope string

const (
	ScopeTicker Scope = "ticker"
	ScopeSector Scope = "sector"
	ScopeGlobal Scope = "global"
)

// Item is one sentiment-bearing news story.
type Item struct {
	Target    string  `json:"target"`
	Scope     Scope   `json:"scope"`
	Summary   string  `json:"summary"`
	Sentiment float64 `json:"sentiment"` // raw score, normalized by Params.SentimentScale
}

// Params bounds the effect of news on prices and volatility.
type Params struct {
	ItemImpactCap  float64 `yaml:"item_impact_cap"`
	TickImpactCap  float64 `yaml:"tick_impact_cap"`
	VolBumpMax     float64 `yaml:"vol_bump_max"`
	SentimentScale float64 `yaml:"sentiment_scale"`
	WeightJitter   float64 `yaml:"weight_jitter"`
}

// DefaultParams returns the stock caps.
func DefaultParams() Params {
	return Params{
		ItemImpactCap:  0.05,
		TickImpactCap:  0.1,
		VolBumpMax:     0.5,
		SentimentScale: 10,
		WeightJitter:   5,
	}
}

// Impact is one entry of the per-tick news log.
type Impact struct {
	Ticker     string  `json:"ticker"`
	Reason     string  `json:"reason"`
	Delta      float64 `json:"delta"`
	Volatility float64 `json:"volatility"`
}

// Normalize maps a raw sentiment score onto [-1,1].
func Normalize(score, scale float64) float64 {
	if scale <= 0 || math.IsNaN(score) {
		return 0
	}
	return calculator.Clamp(score/scale, -1, 1)
}

// Weight returns an item weight in [25,100], superlinear in |s| with jitter
// of up to ±jitter points.
func Weight(s, jitter float64, rng *rand.Rand) float64 {
	w := 25 + 75*math.Pow(math.Abs(s), 1.5)
	if jitter > 0 {
		w += (rng.Float64()*2 - 1) * jitter
	}
	return calculator.Clamp(w, 25, 100)
}

// Layer converts news items into price and volatility patches.
type Layer struct {
	params Params
	rng    *rand.Rand
}

// NewLayer returns a layer drawing jitter from rng.
func NewLayer(params Params, rng *rand.Rand) *Layer {
	return &Layer{params: params, rng: rng}
}

type accum struct {
	inst  *model.Instrument
	delta float64
	vol   float64
}

// Compute resolves every item against snapshot and returns one patch per
// affected instrument plus the impact log. A ticker target takes priority
// over a sector of the same name; items matching nothing are dropped.
func (l *Layer) Compute(snapshot []model.Instrument, items []Item) (map[string]*patch.Patch, []Impact) {
	byTicker := make(map[string]*model.Instrument, len(snapshot))
	bySector := make(map[string][]*model.Instrument)
	for i := range snapshot {
		inst := &snapshot[i]
		byTicker[inst.Ticker] = inst
		bySector[inst.Sector] = append(bySector[inst.Sector], inst)
	}

	state := make(map[string]*accum)
	var order []string
	var impacts []Impact

	for _, item := range items {
		targets := l.resolve(item, snapshot, byTicker, bySector)
		if len(targets) == 0 {
			continue
		}
		s := Normalize(item.Sentiment, l.params.SentimentScale)
		w := Weight(s, l.params.WeightJitter, l.rng) / 100

		for _, inst := range targets {
			if inst.Price <= 0 {
				continue
			}
			a, ok := state[inst.Ticker]
			if !ok {
				a = &accum{inst: inst, vol: inst.Volatility}
				state[inst.Ticker] = a
				order = append(order, inst.Ticker)
			}
			limit := inst.Price * l.params.TickImpactCap
			delta := s * w * inst.Price * l.params.ItemImpactCap
			before := a.delta
			a.delta = calculator.Clamp(a.delta+delta, -limit, limit)

			// Last write wins: the bump is not compounded across items.
			a.vol = model.ClampVolatility(inst.Volatility * (1 + math.Abs(s)*l.params.VolBumpMax))

			impacts = append(impacts, Impact{
				Ticker:     inst.Ticker,
				Reason:     item.Summary,
				Delta:      a.delta - before,
				Volatility: a.vol,
			})
		}
	}

	out := make(map[string]*patch.Patch, len(state))
	for _, ticker := range order {
		a := state[ticker]
		p := patch.New()
		if a.delta != 0 {
			p.Add(patch.Price, a.delta)
		}
		if dv := a.vol - a.inst.Volatility; dv != 0 {
			p.Add(patch.Volatility, dv)
		}
		if !p.Empty() {
			out[ticker] = p
		}
	}
	return out, impacts
}

func (l *Layer) resolve(item Item, all []model.Instrument, byTicker map[string]*model.Instrument, bySector map[string][]*model.Instrument) []*model.Instrument {
	if item.Scope != ScopeSector && item.Scope != ScopeGlobal {
		if inst, ok := byTicker[item.Target]; ok {
			return []*model.Instrument{inst}
		}
	}
	if item.Scope != ScopeGlobal {
		if insts, ok := bySector[item.Target]; ok {
			return insts
		}
	}
	if item.Scope == ScopeGlobal || item.Target == GlobalTarget {
		out := make([]*model.Instrument, len(all))
		for i := range all {
			out[i] = &all[i]
		}
		return out
	}
	return nil
}
