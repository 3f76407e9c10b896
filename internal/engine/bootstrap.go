package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Bootstrap creates the configured instruments and firms that do not exist
// yet, then resumes the clock, economy, sector walk and histories from the
// recorder.
// Any error here is a startup failure.
func (e *Engine) Bootstrap(ctx context.Context, u model.Universe) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	created := 0
	for _, seed := range u.Instruments {
		_, err := e.store.GetInstrument(ctx, seed.Ticker)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("lookup instrument %s: %w", seed.Ticker, err)
		}
		inst, err := seed.Instrument(e.state.Clock.Now())
		if err != nil {
			return err
		}
		if err := e.store.CreateInstrument(ctx, inst); err != nil {
			return fmt.Errorf("create instrument %s: %w", seed.Ticker, err)
		}
		created++
	}

	firms := 0
	for _, seed := range u.Firms {
		_, err := e.store.GetFirm(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("lookup firm %s: %w", seed.ID, err)
		}
		f, err := seed.Firm()
		if err != nil {
			return err
		}
		if err := e.store.SaveFirm(ctx, f); err != nil {
			return fmt.Errorf("create firm %s: %w", seed.ID, err)
		}
		firms++
	}

	if err := e.resume(); err != nil {
		return err
	}
	e.log.Info("bootstrap complete",
		zap.Int("instruments_created", created),
		zap.Int("firms_created", firms),
		zap.Int64("tick", e.state.Clock.Now()))
	return nil
}

func (e *Engine) resume() error {
	last, err := e.rec.LastTick()
	if err != nil {
		return fmt.Errorf("resume tick: %w", err)
	}
	if last == nil {
		return nil
	}
	e.state.Clock.Restore(last.Tick)
	e.state.Economy.Restore(macro.Snapshot{
		InflationRate:    last.InflationRate,
		CurrencyStrength: last.CurrencyStrength,
	})
	e.state.Overlay.Momentum = last.Momentum
	e.pricing.Restore(last.Profile, last.SectorBias)

	mood, err := e.rec.LoadMood(model.MoodHistoryLimit)
	if err != nil {
		return fmt.Errorf("resume mood history: %w", err)
	}
	for _, s := range mood {
		e.state.Mood.Add(s)
	}
	index, err := e.rec.LoadIndex(model.IndexHistoryLimit)
	if err != nil {
		return fmt.Errorf("resume index history: %w", err)
	}
	for _, s := range index {
		e.state.Index.Add(s)
	}

	e.viewMu.Lock()
	e.economy = e.state.Economy.Snapshot()
	e.momentum = last.Momentum
	e.viewMu.Unlock()
	return nil
}
