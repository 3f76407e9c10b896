package model

import (
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade or transaction.
type Side string

const (
	SideBuy      Side = "buy"
	SideSell     Side = "sell"
	SideShort    Side = "short"
	SideCover    Side = "cover"
	SideCall     Side = "call"
	SidePut      Side = "put"
	SideSettle   Side = "settle"
	SideLoan     Side = "loan"
	SideRepay    Side = "repay"
	SideDeposit  Side = "deposit"
	SideWithdraw Side = "withdraw"
)

// TxStatus tracks the lifecycle of time-bound transactions.
type TxStatus string

const (
	TxOpen    TxStatus = "open"
	TxClosed  TxStatus = "closed"
	TxExpired TxStatus = "expired"
	TxCovered TxStatus = "covered"
)

// Transaction is one entry of a portfolio's append-only log. Options and
// shorts carry an expiry and an open status until settled.
type Transaction struct {
	ID         string          `json:"id"`
	Tick       int64           `json:"tick"`
	Side       Side            `json:"side"`
	Ticker     string          `json:"ticker,omitempty"`
	Shares     int64           `json:"shares,omitempty"`
	Price      float64         `json:"price,omitempty"`
	Total      decimal.Decimal `json:"total"`
	ContractID string          `json:"contract_id,omitempty"`
	Strike     float64         `json:"strike,omitempty"`
	ExpiryTick int64           `json:"expiry_tick,omitempty"`
	Contracts  int64           `json:"contracts,omitempty"`
	Open       int64           `json:"open,omitempty"` // shares of a short still borrowed
	Status     TxStatus        `json:"status,omitempty"`
	Ref        string          `json:"ref,omitempty"`
}

// IsOpenDerivative reports whether the transaction still awaits settlement.
func (t *Transaction) IsOpenDerivative() bool {
	return t.Status == TxOpen && (t.Side == SideCall || t.Side == SidePut || t.Side == SideShort)
}

// Portfolio is a user's trading account. It is created lazily on first access.
type Portfolio struct {
	Owner        string           `json:"owner"`
	Cash         decimal.Decimal  `json:"cash"`
	Holdings     map[string]int64 `json:"holdings"`
	Borrowed     map[string]int64 `json:"borrowed"`
	Transactions []Transaction    `json:"transactions"`
	Watchlist    []string         `json:"watchlist"`
	CreatedTick  int64            `json:"created_tick"`
}

// NewPortfolio returns an empty portfolio holding the starting balance.
func NewPortfolio(owner string, balance decimal.Decimal, tick int64) *Portfolio {
	return &Portfolio{
		Owner:       owner,
		Cash:        balance,
		Holdings:    make(map[string]int64),
		Borrowed:    make(map[string]int64),
		Watchlist:   []string{},
		CreatedTick: tick,
	}
}

// EnsureDefaults fills maps that may be absent on decoded records.
func (p *Portfolio) EnsureDefaults() {
	if p.Holdings == nil {
		p.Holdings = make(map[string]int64)
	}
	if p.Borrowed == nil {
		p.Borrowed = make(map[string]int64)
	}
}

// Watching reports whether ticker is on the watchlist.
func (p *Portfolio) Watching(ticker string) bool {
	for _, t := range p.Watchlist {
		if t == ticker {
			return true
		}
	}
	return false
}
