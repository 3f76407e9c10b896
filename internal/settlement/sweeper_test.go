package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/bank"
	"github.com/TheFaucett/stock-game-sub000/internal/clock"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
	"github.com/TheFaucett/stock-game-sub000/internal/trading"
)

type fixture struct {
	mem *store.Memory
	svc *trading.Service
	sw  *Sweeper
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	clk := clock.New()
	svc, err := trading.NewService(mem, clk, trading.DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	b := bank.New(mem, svc, clk, bank.DefaultConfig(), zap.NewNop())
	return &fixture{mem: mem, svc: svc, sw: New(mem, svc, b, 100, zap.NewNop())}
}

func (f *fixture) portfolio(t *testing.T, owner string, cash int64, txs ...model.Transaction) {
	t.Helper()
	p := model.NewPortfolio(owner, decimal.NewFromInt(cash), 0)
	p.Transactions = txs
	for _, tx := range txs {
		if tx.Side == model.SideShort {
			p.Borrowed[tx.Ticker] += tx.Open
		}
	}
	if err := f.mem.SavePortfolio(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) get(t *testing.T, owner string) *model.Portfolio {
	t.Helper()
	p, err := f.mem.GetPortfolio(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) ledger(t *testing.T, l *model.Ledger) {
	t.Helper()
	if err := f.mem.SaveLedger(context.Background(), l); err != nil {
		t.Fatal(err)
	}
}

func TestOptions_SettleExactlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.portfolio(t, "alice", 0,
		model.Transaction{ID: "c", Side: model.SideCall, Ticker: "ACME", Strike: 100, ExpiryTick: 10, Contracts: 2, Status: model.TxOpen},
		model.Transaction{ID: "p", Side: model.SidePut, Ticker: "ACME", Strike: 100, ExpiryTick: 10, Contracts: 1, Status: model.TxOpen},
		model.Transaction{ID: "later", Side: model.SideCall, Ticker: "ACME", Strike: 100, ExpiryTick: 50, Contracts: 1, Status: model.TxOpen},
	)
	prices := map[string]float64{"ACME": 110}

	r := f.sw.Run(ctx, 9, prices)
	if r.OptionsSettled != 0 {
		t.Fatalf("nothing is due at tick 9, settled %d", r.OptionsSettled)
	}
	r = f.sw.Run(ctx, 10, prices)
	if r.OptionsSettled != 2 {
		t.Fatalf("expected 2 settled, got %d", r.OptionsSettled)
	}
	p := f.get(t, "alice")
	if !p.Cash.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 10 * 2 * 100 credited, got %s", p.Cash)
	}
	if p.Transactions[0].Status != model.TxExpired || p.Transactions[1].Status != model.TxExpired {
		t.Error("due options should be marked expired")
	}
	if p.Transactions[2].Status != model.TxOpen {
		t.Error("undue option must stay open")
	}
	if len(p.Transactions) != 5 || p.Transactions[3].Side != model.SideSettle || p.Transactions[3].Ref != "c" {
		t.Errorf("expected settlement records, got %+v", p.Transactions)
	}

	r = f.sw.Run(ctx, 11, prices)
	if r.OptionsSettled != 0 {
		t.Error("re-sweeping settled options must be a no-op")
	}
	if p := f.get(t, "alice"); !p.Cash.Equal(decimal.NewFromInt(2000)) || len(p.Transactions) != 5 {
		t.Error("second sweep changed the portfolio")
	}
}

func TestOptions_LateSweepUsesCurrentSpot(t *testing.T) {
	f := setup(t)
	f.portfolio(t, "bob", 0,
		model.Transaction{ID: "c", Side: model.SideCall, Ticker: "ACME", Strike: 100, ExpiryTick: 5, Contracts: 1, Status: model.TxOpen},
	)
	f.sw.Run(context.Background(), 9, map[string]float64{"ACME": 120})
	if p := f.get(t, "bob"); !p.Cash.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected settlement at current spot, got %s", p.Cash)
	}
}

func TestShorts_ForceCoveredOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.portfolio(t, "carol", 1000,
		model.Transaction{ID: "s", Side: model.SideShort, Ticker: "ACME", Shares: 10, Open: 4, ExpiryTick: 8, Status: model.TxOpen},
	)
	r := f.sw.Run(ctx, 8, map[string]float64{"ACME": 30})
	if r.ShortsCovered != 1 {
		t.Fatalf("expected one short covered, got %d", r.ShortsCovered)
	}
	p := f.get(t, "carol")
	if !p.Cash.Equal(decimal.NewFromInt(880)) || p.Borrowed["ACME"] != 0 || p.Transactions[0].Status != model.TxExpired {
		t.Errorf("unexpected portfolio after cover: %+v", p)
	}
	if r := f.sw.Run(ctx, 9, map[string]float64{"ACME": 30}); r.ShortsCovered != 0 {
		t.Error("short covered twice")
	}
}

func TestLoans_AmortizationScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.portfolio(t, "dave", 10000)
	f.ledger(t, &model.Ledger{Loans: []*model.Loan{{
		ID: "l1", Owner: "dave", Principal: decimal.NewFromInt(1200), Balance: decimal.NewFromInt(1200),
		Term: 12, Rate: 0.01, OriginTick: 100, LastPaid: 100,
	}}})

	r := f.sw.Run(ctx, 106, nil)
	if r.LoanPayments != 1 {
		t.Fatalf("expected one payment, got %+v", r)
	}
	p := f.get(t, "dave")
	if !p.Cash.Equal(decimal.NewFromInt(10000 - 112)) {
		t.Errorf("expected 112 debited, cash %s", p.Cash)
	}
	l, _ := f.mem.LoadLedger(ctx)
	loan := l.Loans[0]
	if !loan.Balance.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("expected balance 1100, got %s", loan.Balance)
	}
	pay := loan.Payments[0]
	if !pay.Principal.Equal(decimal.NewFromInt(100)) || !pay.Interest.Equal(decimal.NewFromInt(12)) {
		t.Errorf("unexpected payment %+v", pay)
	}

	if r := f.sw.Run(ctx, 106, nil); r.LoanPayments != 0 {
		t.Error("at most one payment per tick")
	}
}

func TestLoans_PaidThroughTermClosesAtZero(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.portfolio(t, "erin", 100000)
	f.ledger(t, &model.Ledger{Loans: []*model.Loan{{
		ID: "l1", Owner: "erin", Principal: decimal.NewFromInt(1000), Balance: decimal.NewFromInt(1000),
		Term: 3, Rate: 0.02,
	}}})

	prev := decimal.NewFromInt(1000)
	for tick := int64(1); tick <= 5; tick++ {
		f.sw.Run(ctx, tick, nil)
		l, _ := f.mem.LoadLedger(ctx)
		loan := l.Loans[0]
		if loan.Balance.GreaterThan(prev) {
			t.Fatalf("balance increased at tick %d", tick)
		}
		prev = loan.Balance
	}
	l, _ := f.mem.LoadLedger(ctx)
	loan := l.Loans[0]
	if !loan.Closed || !loan.Balance.IsZero() || len(loan.Payments) != 3 {
		t.Errorf("expected closed at exactly 0 after 3 payments: %+v", loan)
	}
}

func TestLoans_SkipForceCloseAndMalformed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.portfolio(t, "poor", 5)
	f.ledger(t, &model.Ledger{Loans: []*model.Loan{
		{ID: "skip", Owner: "poor", Principal: decimal.NewFromInt(1200), Balance: decimal.NewFromInt(1200), Term: 12, Rate: 0.01},
		{ID: "old", Owner: "poor", Principal: decimal.NewFromInt(500), Balance: decimal.NewFromInt(300), Term: 5, Rate: 0.01},
		{ID: "bad", Owner: "poor", Principal: decimal.NewFromInt(500), Balance: decimal.NewFromInt(500), Term: 0, Rate: 0.01},
	}})

	r := f.sw.Run(ctx, 6, nil)
	if r.LoansSkipped != 1 || r.LoansClosed != 1 || r.Malformed != 1 {
		t.Errorf("unexpected report %+v", r)
	}
	l, _ := f.mem.LoadLedger(ctx)
	if l.Loans[0].Closed || !l.Loans[0].Balance.Equal(decimal.NewFromInt(1200)) {
		t.Error("skipped payment must leave the loan untouched")
	}
	if !l.Loans[1].Closed || !l.Loans[1].Balance.Equal(decimal.NewFromInt(300)) {
		t.Error("loan past term must close regardless of balance")
	}
	if p := f.get(t, "poor"); !p.Cash.Equal(decimal.NewFromInt(5)) {
		t.Errorf("no cash should move, got %s", p.Cash)
	}
}

func TestDeposits_AccrueAndMature(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.portfolio(t, "gail", 0)
	f.ledger(t, &model.Ledger{Deposits: []*model.Deposit{{
		ID: "d1", Owner: "gail", Amount: decimal.NewFromInt(1000), Balance: decimal.NewFromInt(1000),
		Term: 2, Rate: 0.01,
	}}})

	r := f.sw.Run(ctx, 1, nil)
	if r.DepositsAccrued != 1 || r.DepositsMatured != 0 {
		t.Fatalf("unexpected report %+v", r)
	}
	r = f.sw.Run(ctx, 2, nil)
	if r.DepositsMatured != 1 {
		t.Fatalf("expected maturity at tick 2, got %+v", r)
	}
	p := f.get(t, "gail")
	if !p.Cash.Equal(decimal.RequireFromString("1020.1")) {
		t.Errorf("expected compounded payout 1020.1, got %s", p.Cash)
	}
	if r := f.sw.Run(ctx, 3, nil); r.DepositsMatured != 0 || r.DepositsAccrued != 0 {
		t.Error("matured deposit must not be touched again")
	}
}
