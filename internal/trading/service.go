package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
)

// Ticker reports the current simulated tick.
type Ticker interface {
	Now() int64
}

// Backend is the persistence the service needs.
type Backend interface {
	store.InstrumentStore
	store.PortfolioStore
	store.OptionStore
}

// Config holds trading constants.
type Config struct {
	StartingBalance  decimal.Decimal
	OptionMultiplier int64
	ShortTerm        int64
	PremiumFactor    float64
	CacheTTL         time.Duration
}

// DefaultConfig returns the stock trading constants.
func DefaultConfig() Config {
	return Config{
		StartingBalance:  decimal.NewFromInt(10000),
		OptionMultiplier: 100,
		ShortTerm:        30,
		PremiumFactor:    0.4,
		CacheTTL:         10 * time.Minute,
	}
}

// Service is the trade-execution entry point. Every mutation of a portfolio
// goes through Update, which serializes writers per owner.
type Service struct {
	backend Backend
	clock   Ticker
	cfg     Config
	log     *zap.Logger
	cache   *ristretto.Cache
	mintMu  sync.Mutex

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates a service with a contract cache in front of backend.
func NewService(backend Backend, clock Ticker, cfg Config, log *zap.Logger) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("option cache: %w", err)
	}
	return &Service{
		backend: backend,
		clock:   clock,
		cfg:     cfg,
		log:     log,
		cache:   cache,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Config returns the trading constants.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) lock(owner string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[owner]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[owner] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (s *Service) load(ctx context.Context, owner string) (*model.Portfolio, bool, error) {
	p, err := s.backend.GetPortfolio(ctx, owner)
	if errors.Is(err, model.ErrNotFound) {
		return model.NewPortfolio(owner, s.cfg.StartingBalance, s.clock.Now()), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// Portfolio returns owner's portfolio, creating it with the starting
// balance on first access.
func (s *Service) Portfolio(ctx context.Context, owner string) (*model.Portfolio, error) {
	if owner == "" {
		return nil, &model.TradeError{Op: "portfolio", Err: model.ErrInvalidOwner}
	}
	unlock := s.lock(owner)
	defer unlock()
	p, created, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.backend.SavePortfolio(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ErrNoChange may be returned by an Update callback to skip the save.
var ErrNoChange = errors.New("no change")

// Update loads (or lazily creates) owner's portfolio, runs fn and saves the
// result. Nothing is written when fn fails or returns ErrNoChange.
func (s *Service) Update(ctx context.Context, owner string, fn func(p *model.Portfolio) error) error {
	if owner == "" {
		return &model.TradeError{Op: "update", Err: model.ErrInvalidOwner}
	}
	unlock := s.lock(owner)
	defer unlock()
	p, _, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return s.backend.SavePortfolio(ctx, p)
}

func (s *Service) instrument(ctx context.Context, op, ticker string) (*model.Instrument, error) {
	inst, err := s.backend.GetInstrument(ctx, ticker)
	if errors.Is(err, model.ErrNotFound) {
		return nil, &model.TradeError{Op: op, Ticker: ticker, Err: model.ErrUnknownTicker}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, ticker, err)
	}
	return inst, nil
}

// AddToWatchlist adds ticker to owner's watchlist if it is a known ticker.
func (s *Service) AddToWatchlist(ctx context.Context, owner, ticker string) error {
	if _, err := s.instrument(ctx, "watch", ticker); err != nil {
		return err
	}
	return s.Update(ctx, owner, func(p *model.Portfolio) error {
		if !p.Watching(ticker) {
			p.Watchlist = append(p.Watchlist, ticker)
		}
		return nil
	})
}

// RemoveFromWatchlist drops ticker from owner's watchlist.
func (s *Service) RemoveFromWatchlist(ctx context.Context, owner, ticker string) error {
	return s.Update(ctx, owner, func(p *model.Portfolio) error {
		out := p.Watchlist[:0]
		for _, t := range p.Watchlist {
			if t != ticker {
				out = append(out, t)
			}
		}
		p.Watchlist = out
		return nil
	})
}
