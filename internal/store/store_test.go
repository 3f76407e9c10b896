package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "sim.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": sq}
}

func TestInstruments(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, inst := range []model.Instrument{
				{Ticker: "BOLT", Sector: "Energy", Price: 20, Volatility: 0.02, Anchor: 20, History: []float64{20}},
				{Ticker: "ACME", Sector: "Technology", Price: 100, Volatility: 0.02, Anchor: 100, History: []float64{100}},
			} {
				inst := inst
				if err := s.CreateInstrument(ctx, &inst); err != nil {
					t.Fatal(err)
				}
			}
			list, err := s.ListInstruments(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].Ticker != "ACME" {
				t.Fatalf("unexpected list %+v", list)
			}

			// Mutating a returned record must not leak into the store.
			list[0].Price = 1
			got, _ := s.GetInstrument(ctx, "ACME")
			if got.Price != 100 {
				t.Errorf("store shares memory with callers")
			}

			patches := map[string]*patch.Patch{
				"ACME": patch.New().Assign(patch.Price, 110).Append(patch.History, 10, 110),
				"BOLT": patch.New().Assign("bogus", 1),
				"NOPE": patch.New().Assign(patch.Price, 5),
			}
			failures, err := s.ApplyPatches(ctx, patches, 7)
			if err != nil {
				t.Fatal(err)
			}
			if len(failures) != 2 || failures["ACME"] != nil {
				t.Errorf("unexpected failures %v", failures)
			}
			if !errors.Is(failures["NOPE"], model.ErrNotFound) {
				t.Errorf("expected not found for NOPE, got %v", failures["NOPE"])
			}
			got, _ = s.GetInstrument(ctx, "ACME")
			if got.Price != 110 || got.UpdatedTick != 7 || len(got.History) != 2 {
				t.Errorf("patch not applied: %+v", got)
			}
			bolt, _ := s.GetInstrument(ctx, "BOLT")
			if bolt.Price != 20 {
				t.Errorf("failed patch modified BOLT: %+v", bolt)
			}
		})
	}
}

func TestFirmsPortfoliosOptionsLedger(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := model.NewFirm("f1", "Alpha", model.StrategyGrowth, 0.2, 2, decimal.NewFromInt(5000))
			f.Holdings["ACME"] = 3
			if err := s.SaveFirm(ctx, f); err != nil {
				t.Fatal(err)
			}
			f.Cash = decimal.NewFromInt(4000)
			if err := s.SaveFirm(ctx, f); err != nil {
				t.Fatal(err)
			}
			got, err := s.GetFirm(ctx, "f1")
			if err != nil {
				t.Fatal(err)
			}
			if !got.Cash.Equal(decimal.NewFromInt(4000)) || got.Holdings["ACME"] != 3 || got.Memory == nil {
				t.Errorf("unexpected firm %+v", got)
			}
			ids, _ := s.ListFirmIDs(ctx)
			if len(ids) != 1 {
				t.Errorf("expected one firm id, got %v", ids)
			}

			if _, err := s.GetPortfolio(ctx, "alice"); !errors.Is(err, model.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			p := model.NewPortfolio("alice", decimal.NewFromInt(10000), 1)
			if err := s.SavePortfolio(ctx, p); err != nil {
				t.Fatal(err)
			}
			gp, err := s.GetPortfolio(ctx, "alice")
			if err != nil || !gp.Cash.Equal(decimal.NewFromInt(10000)) {
				t.Errorf("portfolio round trip: %+v %v", gp, err)
			}
			owners, _ := s.ListOwners(ctx)
			if len(owners) != 1 || owners[0] != "alice" {
				t.Errorf("unexpected owners %v", owners)
			}

			c := &model.OptionContract{ID: "c1", Underlying: "ACME", Variant: model.Call, Strike: 100, ExpiryTick: 30, Premium: 4.5}
			if err := s.SaveOption(ctx, c); err != nil {
				t.Fatal(err)
			}
			gc, err := s.GetOption(ctx, c.Key())
			if err != nil || gc.ID != "c1" {
				t.Errorf("option round trip: %+v %v", gc, err)
			}

			l, err := s.LoadLedger(ctx)
			if err != nil || len(l.Loans) != 0 {
				t.Fatalf("expected empty ledger, got %+v %v", l, err)
			}
			l.Loans = append(l.Loans, &model.Loan{ID: "l1", Owner: "alice", Principal: decimal.NewFromInt(1200),
				Balance: decimal.NewFromInt(1200), Term: 12, Rate: 0.01})
			if err := s.SaveLedger(ctx, l); err != nil {
				t.Fatal(err)
			}
			l, _ = s.LoadLedger(ctx)
			if len(l.Loans) != 1 || !l.Loans[0].Balance.Equal(decimal.NewFromInt(1200)) {
				t.Errorf("ledger round trip: %+v", l)
			}
		})
	}
}
