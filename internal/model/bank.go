package model

import (
	"github.com/shopspring/decimal"
)

// Payment is one entry of a loan's repayment history or a deposit's
// accrual/withdrawal history.
type Payment struct {
	Tick      int64           `json:"tick"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Total     decimal.Decimal `json:"total"`
	Note      string          `json:"note,omitempty"`
}

// Loan is amortized with level principal over Term ticks.
type Loan struct {
	ID         string          `json:"id"`
	Owner      string          `json:"owner"`
	Principal  decimal.Decimal `json:"principal"`
	Balance    decimal.Decimal `json:"balance"`
	Term       int64           `json:"term"`
	Rate       float64         `json:"rate"`
	OriginTick int64           `json:"origin_tick"`
	LastPaid   int64           `json:"last_paid_tick"`
	Closed     bool            `json:"closed"`
	Payments   []Payment       `json:"payments"`
}

// Age is the number of ticks since origination.
func (l *Loan) Age(tick int64) int64 {
	return tick - l.OriginTick
}

// Valid reports whether the persisted fields are internally consistent.
func (l *Loan) Valid() bool {
	return l.Term > 0 && l.Rate >= 0 && l.Principal.IsPositive() && !l.Balance.IsNegative() &&
		l.Balance.LessThanOrEqual(l.Principal)
}

// Installment returns the level-principal portion and interest due at the
// given age. The final installment of the term clears the whole balance, and
// the principal portion never exceeds what remains.
func (l *Loan) Installment(age int64) (principal, interest decimal.Decimal) {
	principal = l.Principal.Div(decimal.NewFromInt(l.Term))
	if age >= l.Term || principal.GreaterThan(l.Balance) {
		principal = l.Balance
	}
	interest = l.Balance.Mul(decimal.NewFromFloat(l.Rate))
	return principal, interest
}

// Deposit accrues interest every tick until it matures after Term ticks.
type Deposit struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Term        int64           `json:"term"`
	Rate        float64         `json:"rate"`
	OriginTick  int64           `json:"origin_tick"`
	LastAccrued int64           `json:"last_accrued_tick"`
	Closed      bool            `json:"closed"`
	History     []Payment       `json:"history"`
}

// Valid reports whether the persisted fields are internally consistent.
func (d *Deposit) Valid() bool {
	return d.Term > 0 && d.Rate >= 0 && d.Amount.IsPositive() && !d.Balance.IsNegative()
}

// Ledger is the system-wide bank book.
type Ledger struct {
	Loans    []*Loan    `json:"loans"`
	Deposits []*Deposit `json:"deposits"`
}
