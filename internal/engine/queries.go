package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/profile"
)

// InstrumentDetail is a snapshot plus trailing statistics.
type InstrumentDetail struct {
	model.InstrumentView
	Name  string           `json:"name"`
	EPS   float64          `json:"eps"`
	Stats calculator.Stats `json:"stats"`
}

// Tick returns the current tick.
func (e *Engine) Tick() int64 { return e.state.Clock.Now() }

// Snapshot returns every instrument, ordered by ticker.
func (e *Engine) Snapshot(ctx context.Context) ([]model.InstrumentView, error) {
	insts, err := e.store.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	out := make([]model.InstrumentView, len(insts))
	for i := range insts {
		out[i] = insts[i].View()
	}
	return out, nil
}

// Detail returns one instrument with statistics over its history.
func (e *Engine) Detail(ctx context.Context, ticker string) (*InstrumentDetail, error) {
	inst, err := e.store.GetInstrument(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", ticker, err)
	}
	return &InstrumentDetail{
		InstrumentView: inst.View(),
		Name:           inst.Name,
		EPS:            inst.EPS,
		Stats:          calculator.Summarize(inst.History),
	}, nil
}

// MoodHistory returns mood samples, oldest first.
func (e *Engine) MoodHistory() []model.Sample { return e.state.Mood.Samples() }

// IndexHistory returns index samples, oldest first.
func (e *Engine) IndexHistory() []model.Sample { return e.state.Index.Samples() }

// Economy returns the economic factors after the latest tick and the current
// macro momentum.
func (e *Engine) Economy() (macro.Snapshot, float64) {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.economy, e.momentum
}

// Firms returns the summary of every firm valued at current prices.
func (e *Engine) Firms(ctx context.Context) ([]model.FirmSummary, error) {
	ids, err := e.store.ListFirmIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list firms: %w", err)
	}
	insts, err := e.store.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	prices := model.PriceMap(insts)

	out := make([]model.FirmSummary, 0, len(ids))
	for _, id := range ids {
		f, err := e.store.GetFirm(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get firm %s: %w", id, err)
		}
		out = append(out, f.Summary(prices))
	}
	return out, nil
}

// Firm returns the full record of one firm.
func (e *Engine) Firm(ctx context.Context, id string) (*model.Firm, error) {
	f, err := e.store.GetFirm(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get firm %s: %w", id, err)
	}
	f.EnsureDefaults()
	return f, nil
}

// Profiles lists the registered market profiles and the active one.
func (e *Engine) Profiles() (names []string, active string) {
	return e.state.Profiles.Names(), e.state.Profiles.Active().Name
}

// UseProfile swaps the active profile. It takes effect on the next tick.
func (e *Engine) UseProfile(name string) error {
	if err := e.state.Profiles.Use(name); err != nil {
		return err
	}
	e.log.Info("market profile switched", zap.String("profile", name))
	return nil
}

// LoadProfiles registers extra profiles from a YAML file.
func (e *Engine) LoadProfiles(path string) (int, error) {
	return e.state.Profiles.LoadFile(path)
}

// ActiveProfile returns the profile the next tick will use.
func (e *Engine) ActiveProfile() profile.Profile { return e.state.Profiles.Active() }
