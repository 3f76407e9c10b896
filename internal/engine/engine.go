package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/bank"
	"github.com/TheFaucett/stock-game-sub000/internal/feed"
	"github.com/TheFaucett/stock-game-sub000/internal/firm"
	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/market"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/news"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
	"github.com/TheFaucett/stock-game-sub000/internal/pricing"
	"github.com/TheFaucett/stock-game-sub000/internal/profile"
	"github.com/TheFaucett/stock-game-sub000/internal/publisher"
	"github.com/TheFaucett/stock-game-sub000/internal/recorder"
	"github.com/TheFaucett/stock-game-sub000/internal/settlement"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
	"github.com/TheFaucett/stock-game-sub000/internal/trading"
)

// Config wires the tunables of every layer.
type Config struct {
	Seed    int64
	Workers int
	Profile string
	News    news.Params
	Overlay macro.OverlayParams
	Economy macro.EnvParams
	Firm    firm.Params
	Trading trading.Config
	Bank    bank.Config
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 8,
		Profile: "default",
		News:    news.DefaultParams(),
		Overlay: macro.DefaultOverlayParams(),
		Economy: macro.DefaultEnvParams(),
		Firm:    firm.DefaultParams(),
		Trading: trading.DefaultConfig(),
		Bank:    bank.DefaultConfig(),
	}
}

// Report describes one pipeline pass.
type Report struct {
	Tick          int64              `json:"tick"`
	Profile       string             `json:"profile"`
	Economy       macro.Snapshot     `json:"economy"`
	Signals       macro.Signals      `json:"signals"`
	Shock         *macro.Shock       `json:"shock,omitempty"`
	Momentum      float64            `json:"momentum"`
	SectorBias    map[string]float64 `json:"sector_bias,omitempty"`
	NewsItems     int                `json:"news_items"`
	Impacts       []news.Impact      `json:"impacts,omitempty"`
	Patched       int                `json:"patched"`
	PatchFailures int                `json:"patch_failures"`
	FirmsActed    int                `json:"firms_acted"`
	Trades        int                `json:"trades"`
	Settlement    settlement.Report  `json:"settlement"`
	Mood          model.Sample       `json:"mood"`
	Index         model.Sample       `json:"index"`
	Duration      time.Duration      `json:"duration"`
}

// Event converts the report into its persisted and published form.
func (r *Report) Event() *recorder.TickEvent {
	return &recorder.TickEvent{
		Tick:             r.Tick,
		Profile:          r.Profile,
		Momentum:         r.Momentum,
		InflationRate:    r.Economy.InflationRate,
		CurrencyStrength: r.Economy.CurrencyStrength,
		Shock:            r.Shock != nil,
		NewsItems:        r.NewsItems,
		Patched:          r.Patched,
		PatchFailures:    r.PatchFailures,
		Trades:           r.Trades,
		OptionsSettled:   r.Settlement.OptionsSettled,
		LoanPayments:     r.Settlement.LoanPayments,
		Mood:             r.Mood.Value,
		Index:            r.Index.Value,
		DurationMs:       r.Duration.Milliseconds(),
		SectorBias:       r.SectorBias,
	}
}

// Engine drives the per-tick pipeline. Ticks are serialized; queries may run
// concurrently with a tick.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	state   *State
	store   store.Store
	source  feed.Source
	rec     recorder.Recorder
	pub     publisher.Publisher
	trading *trading.Service
	bank    *bank.Bank
	sweeper *settlement.Sweeper

	news    *news.Layer
	pricing *pricing.Model
	desk    *firm.Desk
	firmRng *rand.Rand

	// Last economy values, readable outside the tick lock.
	viewMu   sync.RWMutex
	economy  macro.Snapshot
	momentum float64
}

// New builds an engine over st. A nil source disables news; nil rec or pub
// fall back to their noop implementations.
func New(cfg Config, st store.Store, source feed.Source, rec recorder.Recorder, pub publisher.Publisher, log *zap.Logger) (*Engine, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if pub == nil {
		pub = publisher.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))
	newRng := func() *rand.Rand { return rand.New(rand.NewSource(master.Int63())) }

	profiles, err := profile.NewRegistry(cfg.Profile)
	if err != nil {
		return nil, err
	}
	state := newState(profiles,
		macro.NewOverlay(cfg.Overlay, newRng()),
		macro.NewEnvironment(cfg.Economy, newRng()))

	svc, err := trading.NewService(st, state.Clock, cfg.Trading, log.Named("trading"))
	if err != nil {
		return nil, fmt.Errorf("trading service: %w", err)
	}
	b := bank.New(st, svc, state.Clock, cfg.Bank, log.Named("bank"))

	e := &Engine{
		cfg:     cfg,
		log:     log,
		state:   state,
		store:   st,
		source:  source,
		rec:     rec,
		pub:     pub,
		trading: svc,
		bank:    b,
		sweeper: settlement.New(st, svc, b, cfg.Trading.OptionMultiplier, log.Named("settlement")),
		news:    news.NewLayer(cfg.News, newRng()),
		pricing: pricing.New(newRng()),
		desk:    firm.NewDesk(cfg.Firm),
		firmRng: newRng(),
		economy: state.Economy.Snapshot(),
	}
	log.Info("engine ready", zap.Int64("seed", seed), zap.String("profile", cfg.Profile), zap.Int("workers", cfg.Workers))
	return e, nil
}

// AdvanceOneTick runs the pipeline once. The clock always advances, even
// when a later stage fails; only a failed snapshot read ends the tick early
// and is returned.
func (e *Engine) AdvanceOneTick(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	tick := e.state.Clock.Advance()
	prof := e.state.Profiles.Active()
	rep := &Report{Tick: tick, Profile: prof.Name}
	log := e.log.With(zap.Int64("tick", tick))

	// Economy first so firms see this tick's signals.
	if shock := e.state.Economy.Step(); shock != nil {
		rep.Shock = shock
		log.Info("economic shock",
			zap.Float64("inflation_delta", shock.InflationDelta),
			zap.Float64("currency_delta", shock.CurrencyDelta))
		e.nudgeFirms(ctx, *shock)
	}
	rep.Economy = e.state.Economy.Snapshot()
	rep.Signals = e.state.Economy.Signals()

	snapshot, err := e.store.ListInstruments(ctx)
	if err != nil {
		log.Error("read instrument snapshot", zap.Error(err))
		rep.Duration = time.Since(start)
		return rep, fmt.Errorf("tick %d: read snapshot: %w", tick, err)
	}

	items := e.fetchNews(ctx, tick, snapshot)
	rep.NewsItems = len(items)

	// The three layers read the same snapshot and never see each other's
	// output; each owns its rng.
	var (
		wg                 sync.WaitGroup
		newsP, priceP, mac map[string]*patch.Patch
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		newsP, rep.Impacts = e.news.Compute(snapshot, items)
	}()
	go func() {
		defer wg.Done()
		priceP = e.pricing.Compute(snapshot, prof)
	}()
	go func() {
		defer wg.Done()
		mac = e.state.Overlay.Compute(snapshot)
	}()
	wg.Wait()
	rep.Momentum = e.state.Overlay.Momentum
	rep.SectorBias = e.pricing.Biases()

	merged := patch.MergeAll(newsP, priceP, mac)
	failures, err := e.store.ApplyPatches(ctx, merged, tick)
	if err != nil {
		log.Error("apply patches", zap.Error(err))
		rep.PatchFailures = len(merged)
	} else {
		for ticker, ferr := range failures {
			log.Warn("patch failed", zap.String("ticker", ticker), zap.Error(ferr))
		}
		rep.PatchFailures = len(failures)
		rep.Patched = len(merged) - len(failures)
	}

	// Firms, settlement and aggregates work on post-patch prices.
	if fresh, err := e.store.ListInstruments(ctx); err != nil {
		log.Error("re-read instrument snapshot", zap.Error(err))
	} else {
		snapshot = fresh
	}

	rep.FirmsActed, rep.Trades = e.runFirms(ctx, tick, snapshot, rep.Signals)
	rep.Settlement = e.sweeper.Run(ctx, tick, model.PriceMap(snapshot))

	now := time.Now()
	moodValue, label := market.Mood(snapshot)
	rep.Mood = e.state.Mood.Record(tick, now, moodValue, label)
	rep.Index = e.state.Index.Record(tick, now, market.Index(snapshot), "")
	rep.Duration = time.Since(start)

	e.viewMu.Lock()
	e.economy = rep.Economy
	e.momentum = rep.Momentum
	e.viewMu.Unlock()

	e.persist(ctx, rep)

	log.Info("tick complete",
		zap.String("profile", rep.Profile),
		zap.Int("patched", rep.Patched),
		zap.Int("patch_failures", rep.PatchFailures),
		zap.Int("news_items", rep.NewsItems),
		zap.Int("trades", rep.Trades),
		zap.Int("options_settled", rep.Settlement.OptionsSettled),
		zap.Int("loan_payments", rep.Settlement.LoanPayments),
		zap.Float64("mood", rep.Mood.Value),
		zap.Float64("index", rep.Index.Value),
		zap.Duration("took", rep.Duration))
	return rep, nil
}

func (e *Engine) fetchNews(ctx context.Context, tick int64, snapshot []model.Instrument) []news.Item {
	if e.source == nil {
		return nil
	}
	batch, err := e.source.Fetch(ctx, tick)
	if err != nil {
		e.log.Warn("news fetch failed", zap.String("source", e.source.Name()), zap.Error(err))
		return nil
	}
	tickers := make(map[string]bool, len(snapshot))
	sectors := make(map[string]bool)
	for _, inst := range snapshot {
		tickers[inst.Ticker] = true
		sectors[inst.Sector] = true
	}
	return feed.Flatten(batch, tickers, sectors)
}

// runFirms lets every firm act once. Firms run in parallel, bounded by the
// worker count; each gets its own rng drawn in id order.
func (e *Engine) runFirms(ctx context.Context, tick int64, snapshot []model.Instrument, sig macro.Signals) (acted, trades int) {
	ids, err := e.store.ListFirmIDs(ctx)
	if err != nil {
		e.log.Error("list firms", zap.Error(err))
		return 0, 0
	}
	seeds := make([]int64, len(ids))
	for i := range seeds {
		seeds[i] = e.firmRng.Int63()
	}

	var mu sync.Mutex
	e.eachFirm(ctx, ids, func(i int, f *model.Firm) bool {
		res, err := e.desk.Act(f, snapshot, tick, sig, rand.New(rand.NewSource(seeds[i])))
		if err != nil {
			e.log.Warn("firm act failed", zap.String("firm", f.ID), zap.Error(err))
			return false
		}
		if res.Skipped {
			return false
		}
		mu.Lock()
		acted++
		trades += len(res.Trades)
		mu.Unlock()
		return true
	})
	return acted, trades
}

func (e *Engine) nudgeFirms(ctx context.Context, shock macro.Shock) {
	ids, err := e.store.ListFirmIDs(ctx)
	if err != nil {
		e.log.Error("list firms", zap.Error(err))
		return
	}
	e.eachFirm(ctx, ids, func(_ int, f *model.Firm) bool {
		e.desk.Nudge(f, shock)
		return true
	})
}

// eachFirm loads, mutates and saves every firm in ids concurrently. fn
// reports whether the firm changed and must be saved. A failure on one firm
// is logged and never affects the others.
func (e *Engine) eachFirm(ctx context.Context, ids []string, fn func(i int, f *model.Firm) bool) {
	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			f, err := e.store.GetFirm(ctx, id)
			if err != nil {
				e.log.Warn("load firm", zap.String("firm", id), zap.Error(err))
				return
			}
			f.EnsureDefaults()
			if !fn(i, f) {
				return
			}
			if err := e.store.SaveFirm(ctx, f); err != nil {
				e.log.Warn("save firm", zap.String("firm", id), zap.Error(err))
			}
		}(i, id)
	}
	wg.Wait()
}

func (e *Engine) persist(ctx context.Context, rep *Report) {
	if err := e.rec.RecordMood(rep.Mood); err != nil {
		e.log.Error("record mood", zap.Error(err))
	}
	if err := e.rec.RecordIndex(rep.Index); err != nil {
		e.log.Error("record index", zap.Error(err))
	}
	evt := rep.Event()
	if err := e.rec.RecordTick(evt); err != nil {
		e.log.Error("record tick", zap.Error(err))
	}
	if err := e.pub.PublishTick(ctx, evt); err != nil {
		e.log.Warn("publish tick", zap.Error(err))
	}
}

// Trading returns the trade-execution entry point.
func (e *Engine) Trading() *trading.Service { return e.trading }

// Bank returns the loan and deposit desk.
func (e *Engine) Bank() *bank.Bank { return e.bank }

// Close releases the recorder, publisher and store.
func (e *Engine) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{e.pub, e.rec, e.store} {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
