package store

import (
	"context"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

// InstrumentStore persists the instrument universe.
type InstrumentStore interface {
	ListInstruments(ctx context.Context) ([]model.Instrument, error)
	GetInstrument(ctx context.Context, ticker string) (*model.Instrument, error)
	CreateInstrument(ctx context.Context, inst *model.Instrument) error
	// ApplyPatches writes every patch as one batch. Per-instrument failures
	// are returned keyed by ticker and never abort the batch; the error
	// result is reserved for failures of the batch itself.
	ApplyPatches(ctx context.Context, patches map[string]*patch.Patch, tick int64) (map[string]error, error)
}

// FirmStore persists trading firms.
type FirmStore interface {
	ListFirmIDs(ctx context.Context) ([]string, error)
	GetFirm(ctx context.Context, id string) (*model.Firm, error)
	SaveFirm(ctx context.Context, f *model.Firm) error
}

// PortfolioStore persists user portfolios.
type PortfolioStore interface {
	ListOwners(ctx context.Context) ([]string, error)
	GetPortfolio(ctx context.Context, owner string) (*model.Portfolio, error)
	SavePortfolio(ctx context.Context, p *model.Portfolio) error
}

// OptionStore persists minted option contracts by natural key.
type OptionStore interface {
	GetOption(ctx context.Context, key string) (*model.OptionContract, error)
	SaveOption(ctx context.Context, c *model.OptionContract) error
}

// LedgerStore persists the system-wide bank ledger as one document.
type LedgerStore interface {
	LoadLedger(ctx context.Context) (*model.Ledger, error)
	SaveLedger(ctx context.Context, l *model.Ledger) error
}

// Store composes every entity store.
type Store interface {
	InstrumentStore
	FirmStore
	PortfolioStore
	OptionStore
	LedgerStore
	Close() error
}
