package bank

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
	"github.com/TheFaucett/stock-game-sub000/internal/trading"
)

// Config holds bank rates and limits.
type Config struct {
	LoanRate    float64
	DepositRate float64
	MaxTerm     int64
	MaxLoan     decimal.Decimal
}

// DefaultConfig returns the stock bank terms.
func DefaultConfig() Config {
	return Config{
		LoanRate:    0.01,
		DepositRate: 0.002,
		MaxTerm:     365,
		MaxLoan:     decimal.NewFromInt(100000),
	}
}

// Bank manages the system-wide ledger of loans and deposits. The ledger is
// a single document; every read-modify-write holds the bank mutex.
type Bank struct {
	mu      sync.Mutex
	ledger  store.LedgerStore
	trading *trading.Service
	clock   trading.Ticker
	cfg     Config
	log     *zap.Logger
}

// New creates a bank moving cash through the trading service's portfolios.
func New(ledger store.LedgerStore, svc *trading.Service, clock trading.Ticker, cfg Config, log *zap.Logger) *Bank {
	return &Bank{ledger: ledger, trading: svc, clock: clock, cfg: cfg, log: log}
}

// WithLedger runs fn with the loaded ledger and saves it afterwards unless
// fn fails.
func (b *Bank) WithLedger(ctx context.Context, fn func(l *model.Ledger) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.ledger.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if err := fn(l); err != nil {
		return err
	}
	if err := b.ledger.SaveLedger(ctx, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (b *Bank) validTerm(op string, term int64) error {
	if term <= 0 || term > b.cfg.MaxTerm {
		return &model.TradeError{Op: op, Err: model.ErrInvalidQuantity}
	}
	return nil
}

// TakeLoan books a new loan and credits the principal to owner's portfolio.
func (b *Bank) TakeLoan(ctx context.Context, owner string, principal decimal.Decimal, term int64) (*model.Loan, error) {
	if !principal.IsPositive() || principal.GreaterThan(b.cfg.MaxLoan) {
		return nil, &model.TradeError{Op: "loan", Err: model.ErrInvalidAmount}
	}
	if err := b.validTerm("loan", term); err != nil {
		return nil, err
	}
	now := b.clock.Now()
	loan := &model.Loan{
		ID:         uuid.NewString(),
		Owner:      owner,
		Principal:  principal,
		Balance:    principal,
		Term:       term,
		Rate:       b.cfg.LoanRate,
		OriginTick: now,
		LastPaid:   now,
	}

	err := b.WithLedger(ctx, func(l *model.Ledger) error {
		if err := b.trading.Update(ctx, owner, func(p *model.Portfolio) error {
			p.Cash = p.Cash.Add(principal)
			p.Transactions = append(p.Transactions, model.Transaction{
				ID: uuid.NewString(), Tick: now, Side: model.SideLoan, Total: principal, Ref: loan.ID,
			})
			return nil
		}); err != nil {
			return err
		}
		l.Loans = append(l.Loans, loan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("loan opened", zap.String("loan", loan.ID), zap.String("portfolio", owner),
		zap.String("principal", principal.String()), zap.Int64("term", term))
	return loan, nil
}

// OpenDeposit moves amount from owner's cash into a term deposit.
func (b *Bank) OpenDeposit(ctx context.Context, owner string, amount decimal.Decimal, term int64) (*model.Deposit, error) {
	if !amount.IsPositive() {
		return nil, &model.TradeError{Op: "deposit", Err: model.ErrInvalidAmount}
	}
	if err := b.validTerm("deposit", term); err != nil {
		return nil, err
	}
	now := b.clock.Now()
	dep := &model.Deposit{
		ID:          uuid.NewString(),
		Owner:       owner,
		Amount:      amount,
		Balance:     amount,
		Term:        term,
		Rate:        b.cfg.DepositRate,
		OriginTick:  now,
		LastAccrued: now,
	}

	err := b.WithLedger(ctx, func(l *model.Ledger) error {
		if err := b.trading.Update(ctx, owner, func(p *model.Portfolio) error {
			if amount.GreaterThan(p.Cash) {
				return &model.TradeError{Op: "deposit", Err: model.ErrInsufficientFunds}
			}
			p.Cash = p.Cash.Sub(amount)
			p.Transactions = append(p.Transactions, model.Transaction{
				ID: uuid.NewString(), Tick: now, Side: model.SideDeposit, Total: amount, Ref: dep.ID,
			})
			return nil
		}); err != nil {
			return err
		}
		l.Deposits = append(l.Deposits, dep)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dep, nil
}

// Withdraw closes a deposit early and pays out its balance.
func (b *Bank) Withdraw(ctx context.Context, owner, depositID string) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := b.WithLedger(ctx, func(l *model.Ledger) error {
		dep := findDeposit(l, depositID)
		if dep == nil || dep.Owner != owner {
			return &model.TradeError{Op: "withdraw", Err: model.ErrNotFound}
		}
		if dep.Closed {
			return &model.TradeError{Op: "withdraw", Err: model.ErrClosed}
		}
		now := b.clock.Now()
		if err := b.Payout(ctx, dep, now, "early withdrawal"); err != nil {
			return err
		}
		paid = dep.History[len(dep.History)-1].Total
		return nil
	})
	return paid, err
}

// Payout credits a deposit's balance to its owner and closes it. Callers
// must hold the ledger via WithLedger.
func (b *Bank) Payout(ctx context.Context, dep *model.Deposit, tick int64, note string) error {
	amount := dep.Balance
	if err := b.trading.Update(ctx, dep.Owner, func(p *model.Portfolio) error {
		p.Cash = p.Cash.Add(amount)
		p.Transactions = append(p.Transactions, model.Transaction{
			ID: uuid.NewString(), Tick: tick, Side: model.SideWithdraw, Total: amount, Ref: dep.ID,
		})
		return nil
	}); err != nil {
		return err
	}
	dep.Balance = decimal.Zero
	dep.Closed = true
	dep.History = append(dep.History, model.Payment{Tick: tick, Principal: amount, Total: amount, Note: note})
	return nil
}

func findDeposit(l *model.Ledger, id string) *model.Deposit {
	for _, d := range l.Deposits {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Loans returns owner's loans, or every loan when owner is empty.
func (b *Bank) Loans(ctx context.Context, owner string) ([]model.Loan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.ledger.LoadLedger(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Loan
	for _, loan := range l.Loans {
		if owner == "" || loan.Owner == owner {
			out = append(out, *loan)
		}
	}
	return out, nil
}

// Deposits returns owner's deposits, or every deposit when owner is empty.
func (b *Bank) Deposits(ctx context.Context, owner string) ([]model.Deposit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.ledger.LoadLedger(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Deposit
	for _, d := range l.Deposits {
		if owner == "" || d.Owner == owner {
			out = append(out, *d)
		}
	}
	return out, nil
}
