package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/bank"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
	"github.com/TheFaucett/stock-game-sub000/internal/trading"
)

// Report counts what one sweep did.
type Report struct {
	OptionsSettled  int `json:"options_settled"`
	ShortsCovered   int `json:"shorts_covered"`
	LoanPayments    int `json:"loan_payments"`
	LoansClosed     int `json:"loans_closed"`
	LoansSkipped    int `json:"loans_skipped"`
	DepositsAccrued int `json:"deposits_accrued"`
	DepositsMatured int `json:"deposits_matured"`
	Malformed       int `json:"malformed"`
	Failures        int `json:"failures"`
}

// Sweeper settles expiring derivatives and services the bank ledger.
type Sweeper struct {
	owners     store.PortfolioStore
	trading    *trading.Service
	bank       *bank.Bank
	multiplier int64
	log        *zap.Logger
}

// New creates a sweeper.
func New(owners store.PortfolioStore, svc *trading.Service, b *bank.Bank, multiplier int64, log *zap.Logger) *Sweeper {
	return &Sweeper{owners: owners, trading: svc, bank: b, multiplier: multiplier, log: log}
}

// Run performs every sweep for tick. Options and shorts settle against
// prices, which must hold the current spot of every instrument.
func (s *Sweeper) Run(ctx context.Context, tick int64, prices map[string]float64) Report {
	var r Report
	s.sweepPortfolios(ctx, tick, prices, &r)
	s.sweepLedger(ctx, tick, &r)
	return r
}

func (s *Sweeper) sweepPortfolios(ctx context.Context, tick int64, prices map[string]float64, r *Report) {
	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		s.log.Error("list portfolios for settlement", zap.Error(err))
		r.Failures++
		return
	}
	for _, owner := range owners {
		var options, shorts int
		err := s.trading.Update(ctx, owner, func(p *model.Portfolio) error {
			options, shorts = s.settle(p, tick, prices)
			if options+shorts == 0 {
				return trading.ErrNoChange
			}
			return nil
		})
		if err != nil {
			s.log.Warn("settle portfolio", zap.String("portfolio", owner), zap.Error(err))
			r.Failures++
			continue
		}
		r.OptionsSettled += options
		r.ShortsCovered += shorts
	}
}

// settle closes every due option and short on p exactly once. A due
// position on an instrument without a price is left open for a later tick.
func (s *Sweeper) settle(p *model.Portfolio, tick int64, prices map[string]float64) (options, shorts int) {
	n := len(p.Transactions)
	for i := 0; i < n; i++ {
		t := &p.Transactions[i]
		if !t.IsOpenDerivative() || t.ExpiryTick > tick {
			continue
		}
		spot, ok := prices[t.Ticker]
		if !ok {
			s.log.Warn("no spot for due position", zap.String("portfolio", p.Owner), zap.String("ticker", t.Ticker))
			continue
		}

		var settle model.Transaction
		switch t.Side {
		case model.SideCall, model.SidePut:
			variant := model.Call
			if t.Side == model.SidePut {
				variant = model.Put
			}
			units := t.Contracts * s.multiplier
			payout := decimal.NewFromFloat(model.Intrinsic(variant, t.Strike, spot)).Mul(decimal.NewFromInt(units))
			p.Cash = p.Cash.Add(payout)
			t.Status = model.TxExpired
			settle = model.Transaction{Side: model.SideSettle, Ticker: t.Ticker, Price: spot, Total: payout, Contracts: t.Contracts}
			options++
		case model.SideShort:
			open := t.Open
			total := decimal.NewFromFloat(spot).Mul(decimal.NewFromInt(open))
			p.Cash = p.Cash.Sub(total)
			p.Borrowed[t.Ticker] -= open
			if p.Borrowed[t.Ticker] <= 0 {
				delete(p.Borrowed, t.Ticker)
			}
			t.Open = 0
			t.Status = model.TxExpired
			settle = model.Transaction{Side: model.SideCover, Ticker: t.Ticker, Shares: open, Price: spot, Total: total}
			shorts++
		}
		settle.ID = uuid.NewString()
		settle.Tick = tick
		settle.Ref = t.ID
		// Appending may reallocate; t is not used past this point.
		p.Transactions = append(p.Transactions, settle)
	}
	return options, shorts
}

func (s *Sweeper) sweepLedger(ctx context.Context, tick int64, r *Report) {
	err := s.bank.WithLedger(ctx, func(l *model.Ledger) error {
		for _, loan := range l.Loans {
			s.serviceLoan(ctx, loan, tick, r)
		}
		for _, dep := range l.Deposits {
			s.serviceDeposit(ctx, dep, tick, r)
		}
		return nil
	})
	if err != nil {
		s.log.Error("ledger sweep", zap.Error(err))
		r.Failures++
	}
}

func (s *Sweeper) serviceLoan(ctx context.Context, loan *model.Loan, tick int64, r *Report) {
	if loan.Closed {
		return
	}
	if !loan.Valid() {
		s.log.Warn("skipping malformed loan", zap.String("loan", loan.ID), zap.Error(model.ErrMalformedRecord))
		r.Malformed++
		return
	}
	age := loan.Age(tick)
	if age > loan.Term {
		loan.Closed = true
		loan.Payments = append(loan.Payments, model.Payment{Tick: tick, Note: "term exceeded"})
		r.LoansClosed++
		s.log.Info("loan force-closed", zap.String("loan", loan.ID), zap.String("balance", loan.Balance.String()))
		return
	}
	if age <= 0 || loan.LastPaid >= tick {
		return
	}

	principal, interest := loan.Installment(age)
	due := principal.Add(interest)
	err := s.trading.Update(ctx, loan.Owner, func(p *model.Portfolio) error {
		if due.GreaterThan(p.Cash) {
			return model.ErrInsufficientFunds
		}
		p.Cash = p.Cash.Sub(due)
		p.Transactions = append(p.Transactions, model.Transaction{
			ID: uuid.NewString(), Tick: tick, Side: model.SideRepay, Total: due, Ref: loan.ID,
		})
		return nil
	})
	if err != nil {
		s.log.Info("loan payment skipped", zap.String("loan", loan.ID), zap.String("portfolio", loan.Owner), zap.Error(err))
		r.LoansSkipped++
		return
	}

	loan.Balance = loan.Balance.Sub(principal)
	loan.LastPaid = tick
	loan.Payments = append(loan.Payments, model.Payment{Tick: tick, Principal: principal, Interest: interest, Total: due})
	r.LoanPayments++
	if !loan.Balance.IsPositive() {
		loan.Balance = decimal.Zero
		loan.Closed = true
		r.LoansClosed++
	}
}

func (s *Sweeper) serviceDeposit(ctx context.Context, dep *model.Deposit, tick int64, r *Report) {
	if dep.Closed {
		return
	}
	if !dep.Valid() {
		s.log.Warn("skipping malformed deposit", zap.String("deposit", dep.ID), zap.Error(model.ErrMalformedRecord))
		r.Malformed++
		return
	}
	age := tick - dep.OriginTick
	if age > 0 && dep.LastAccrued < tick && age <= dep.Term {
		interest := dep.Balance.Mul(decimal.NewFromFloat(dep.Rate)).Round(8)
		dep.Balance = dep.Balance.Add(interest)
		dep.LastAccrued = tick
		dep.History = append(dep.History, model.Payment{Tick: tick, Interest: interest, Total: interest, Note: "accrual"})
		r.DepositsAccrued++
	}
	if age >= dep.Term {
		if err := s.bank.Payout(ctx, dep, tick, "matured"); err != nil {
			s.log.Warn("deposit payout", zap.String("deposit", dep.ID), zap.Error(fmt.Errorf("retry next tick: %w", err)))
			r.Failures++
			return
		}
		r.DepositsMatured++
	}
}
