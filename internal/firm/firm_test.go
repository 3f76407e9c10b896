package firm

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// fixed always proposes the same candidates with certainty.
type fixed struct{ buy, sell string }

func (s fixed) Decide(Decision) Intent {
	return Intent{Buy: s.buy, Sell: s.sell, BuyBias: 1, SellBias: 1}
}

func newFirm(strategy model.StrategyTag) *model.Firm {
	return model.NewFirm("f1", "Alpha Capital", strategy, 0.1, 3, decimal.NewFromInt(10000))
}

func snap() []model.Instrument {
	return []model.Instrument{
		{Ticker: "ACME", Price: 50, LastChange: 4, EPS: 2, Volatility: 0.02},
		{Ticker: "BOLT", Price: 20, LastChange: -6, EPS: 5, Volatility: 0.01},
		{Ticker: "CRUD", Price: 10, LastChange: 1, EPS: 1, Volatility: 0.09},
	}
}

func TestBuy_MomentumScenario(t *testing.T) {
	d := NewDesk(DefaultParams())
	f := newFirm(model.StrategyMomentum)

	intent := Strategies()[model.StrategyMomentum].Decide(Decision{Firm: f, Snapshot: snap()})
	if intent.Buy != "ACME" {
		t.Fatalf("momentum should pick top mover ACME, got %s", intent.Buy)
	}

	tr, ok := d.Buy(f, "ACME", 50, 1)
	if !ok {
		t.Fatal("expected buy")
	}
	if tr.Shares != 20 {
		t.Errorf("expected 20 shares, got %d", tr.Shares)
	}
	if !f.Cash.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("expected cash 9000, got %s", f.Cash)
	}
	if f.Holdings["ACME"] != 20 || len(f.Transactions) != 1 {
		t.Errorf("unexpected firm state: %+v", f)
	}
}

func TestStrategies_Candidates(t *testing.T) {
	f := newFirm(model.StrategyContrarian)
	f.Holdings = map[string]int64{"ACME": 5, "CRUD": 5}
	tests := []struct {
		tag       model.StrategyTag
		buy, sell string
	}{
		{model.StrategyMomentum, "ACME", "CRUD"},
		{model.StrategyContrarian, "BOLT", "ACME"},
		{model.StrategyGrowth, "BOLT", "CRUD"},
		{model.StrategyVolatility, "CRUD", "ACME"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			in := Strategies()[tt.tag].Decide(Decision{Firm: f, Snapshot: snap()})
			if in.Buy != tt.buy || in.Sell != tt.sell {
				t.Errorf("got buy=%s sell=%s, want %s/%s", in.Buy, in.Sell, tt.buy, tt.sell)
			}
		})
	}

	rng := rand.New(rand.NewSource(1))
	in := Strategies()[model.StrategyRandom].Decide(Decision{Firm: f, Snapshot: snap(), Rng: rng})
	if in.Buy == "" || (in.Sell != "ACME" && in.Sell != "CRUD") {
		t.Errorf("random picked buy=%q sell=%q", in.Buy, in.Sell)
	}
}

func TestBiases(t *testing.T) {
	lowBuy, lowSell := Biases(model.Emotion{Confidence: 0, Greed: 0.5, Frustration: 0.5}, macro.Signals{})
	highBuy, highSell := Biases(model.Emotion{Confidence: 1, Greed: 0.5, Frustration: 0.5}, macro.Signals{})
	if highBuy <= lowBuy || highSell >= lowSell {
		t.Errorf("confidence should raise buy and lower sell: %f/%f vs %f/%f", lowBuy, lowSell, highBuy, highSell)
	}
	recBuy, recSell := Biases(model.NeutralEmotion(), macro.Signals{Recession: true})
	neuBuy, neuSell := Biases(model.NeutralEmotion(), macro.Signals{})
	if recBuy >= neuBuy || recSell <= neuSell {
		t.Error("recession should lower buy and raise sell bias")
	}
	b, s := Biases(model.Emotion{Confidence: 1, Greed: 1}, macro.Signals{Boom: true})
	if b < 0 || b > 1 || s < 0 || s > 1 {
		t.Errorf("biases out of range: %f %f", b, s)
	}
}

func TestSell_OutcomeAndEmotion(t *testing.T) {
	d := NewDesk(DefaultParams())
	f := newFirm(model.StrategyMomentum)
	d.Buy(f, "ACME", 50, 1)

	before := f.Emotion
	tr, ok := d.Sell(f, "ACME", 60, 2)
	if !ok {
		t.Fatal("expected sell")
	}
	if tr.Shares != 2 {
		t.Errorf("expected ceil(20*0.1)=2 shares, got %d", tr.Shares)
	}
	if tr.Outcome != model.OutcomeGain {
		t.Errorf("expected gain, got %s", tr.Outcome)
	}
	if f.Emotion.Confidence <= before.Confidence || f.Emotion.Regret >= before.Regret {
		t.Errorf("gain should lift confidence and cut regret: %+v", f.Emotion)
	}
	if f.Holdings["ACME"] != 18 {
		t.Errorf("expected 18 remaining, got %d", f.Holdings["ACME"])
	}

	tr, _ = d.Sell(f, "ACME", 40, 3)
	if tr.Outcome != model.OutcomeLoss {
		t.Errorf("expected loss, got %s", tr.Outcome)
	}
	if _, ok := d.Sell(f, "BOLT", 10, 3); ok {
		t.Error("selling an unowned ticker must be a no-op")
	}
}

func TestAct_CadenceGateAndDecay(t *testing.T) {
	d := NewDesk(DefaultParams())
	d.strategies[model.StrategyMomentum] = fixed{buy: "ACME"}
	f := newFirm(model.StrategyMomentum)
	rng := rand.New(rand.NewSource(1))

	res, err := d.Act(f, snap(), 1, macro.Signals{}, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 || f.LastTradeTick != 1 {
		t.Fatalf("expected one trade at tick 1, got %+v", res)
	}
	res, _ = d.Act(f, snap(), 3, macro.Signals{}, rng)
	if !res.Skipped {
		t.Error("firm should be gated before tradingFrequency ticks")
	}
	res, _ = d.Act(f, snap(), 4, macro.Signals{}, rng)
	if res.Skipped || len(res.Trades) == 0 {
		t.Error("firm should trade once the cadence has elapsed")
	}

	d.strategies[model.StrategyMomentum] = fixed{}
	f.Emotion = model.Emotion{Confidence: 1, Greed: 0, Frustration: 1, Regret: 0}
	d.Act(f, snap(), 10, macro.Signals{}, rng)
	if f.Emotion.Confidence >= 1 || f.Emotion.Greed <= 0 {
		t.Errorf("no-trade pass should decay toward neutral: %+v", f.Emotion)
	}
}

func TestAct_UnknownStrategy(t *testing.T) {
	d := NewDesk(DefaultParams())
	f := newFirm("hodl")
	if _, err := d.Act(f, snap(), 5, macro.Signals{}, rand.New(rand.NewSource(1))); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestEmotion_StaysBounded(t *testing.T) {
	params := DefaultParams()
	params.EmotionStep = 0.4
	params.ShockNudge = 2
	d := NewDesk(params)
	f := newFirm(model.StrategyRandom)
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			d.react(&f.Emotion, model.OutcomeGain)
		case 1:
			d.react(&f.Emotion, model.OutcomeLoss)
		case 2:
			d.decay(&f.Emotion)
		default:
			d.Nudge(f, macro.Shock{InflationDelta: rng.NormFloat64(), CurrencyDelta: rng.NormFloat64()})
		}
		e := f.Emotion
		for _, v := range []float64{e.Confidence, e.Frustration, e.Greed, e.Regret} {
			if v < 0 || v > 1 {
				t.Fatalf("emotion out of range at step %d: %+v", i, e)
			}
		}
	}
}

func TestMemory_Bounded(t *testing.T) {
	d := NewDesk(DefaultParams())
	f := newFirm(model.StrategyMomentum)
	f.RiskTolerance = 0.01
	f.Cash = decimal.NewFromInt(1_000_000)
	for i := 0; i < 25; i++ {
		d.Buy(f, "ACME", 50+float64(i), int64(i))
	}
	if n := len(f.Memory["ACME"].Prices); n != model.MemoryDepth {
		t.Errorf("expected %d remembered prices, got %d", model.MemoryDepth, n)
	}
	if f.Memory["ACME"].Prices[0] != 65 {
		t.Errorf("expected oldest remembered 65, got %f", f.Memory["ACME"].Prices[0])
	}
}
