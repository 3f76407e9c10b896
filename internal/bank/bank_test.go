package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/clock"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
	"github.com/TheFaucett/stock-game-sub000/internal/trading"
)

func setup(t *testing.T) (*Bank, *trading.Service, *clock.Clock) {
	t.Helper()
	mem := store.NewMemory()
	clk := clock.New()
	svc, err := trading.NewService(mem, clk, trading.DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return New(mem, svc, clk, DefaultConfig(), zap.NewNop()), svc, clk
}

func TestTakeLoan(t *testing.T) {
	b, svc, _ := setup(t)
	ctx := context.Background()

	loan, err := b.TakeLoan(ctx, "alice", decimal.NewFromInt(1200), 12)
	if err != nil {
		t.Fatal(err)
	}
	if !loan.Balance.Equal(decimal.NewFromInt(1200)) || loan.Rate != 0.01 || loan.Closed {
		t.Errorf("unexpected loan %+v", loan)
	}
	p, _ := svc.Portfolio(ctx, "alice")
	if !p.Cash.Equal(decimal.NewFromInt(11200)) {
		t.Errorf("expected principal credited, cash %s", p.Cash)
	}
	loans, _ := b.Loans(ctx, "alice")
	if len(loans) != 1 {
		t.Errorf("expected one loan, got %d", len(loans))
	}

	if _, err := b.TakeLoan(ctx, "alice", decimal.Zero, 12); !errors.Is(err, model.ErrInvalidAmount) {
		t.Errorf("expected invalid amount, got %v", err)
	}
	if _, err := b.TakeLoan(ctx, "alice", decimal.NewFromInt(10), 0); !errors.Is(err, model.ErrInvalidQuantity) {
		t.Errorf("expected invalid term, got %v", err)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	b, svc, _ := setup(t)
	ctx := context.Background()

	dep, err := b.OpenDeposit(ctx, "bob", decimal.NewFromInt(4000), 30)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := svc.Portfolio(ctx, "bob")
	if !p.Cash.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("expected 6000 after deposit, got %s", p.Cash)
	}
	if _, err := b.OpenDeposit(ctx, "bob", decimal.NewFromInt(7000), 30); !errors.Is(err, model.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
	deps, _ := b.Deposits(ctx, "bob")
	if len(deps) != 1 {
		t.Fatalf("rejected deposit must not be booked, got %d", len(deps))
	}

	if _, err := b.Withdraw(ctx, "mallory", dep.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found for another owner, got %v", err)
	}
	paid, err := b.Withdraw(ctx, "bob", dep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !paid.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("expected 4000 paid, got %s", paid)
	}
	if _, err := b.Withdraw(ctx, "bob", dep.ID); !errors.Is(err, model.ErrClosed) {
		t.Errorf("expected closed, got %v", err)
	}
	p, _ = svc.Portfolio(ctx, "bob")
	if !p.Cash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected cash restored, got %s", p.Cash)
	}
}
