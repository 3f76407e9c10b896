package trading

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Premium prices one share of an option: intrinsic value plus a time value
// proportional to spot, volatility and the square root of ticks left.
func Premium(variant model.OptionVariant, spot, strike, vol float64, ticksLeft int64, factor float64) float64 {
	t := math.Max(float64(ticksLeft), 0)
	return model.Intrinsic(variant, strike, spot) + factor*spot*vol*math.Sqrt(t)
}

// Quote returns the contract for (ticker, variant, strike, expiry), minting
// it on first request. Contracts are cached in front of the store.
func (s *Service) Quote(ctx context.Context, ticker string, variant model.OptionVariant, strike float64, expiry int64) (*model.OptionContract, error) {
	op := string(variant)
	if variant != model.Call && variant != model.Put {
		return nil, &model.TradeError{Op: "quote", Ticker: ticker, Err: model.ErrInvalidVariant}
	}
	// Strikes are keyed at four decimals.
	strike = math.Round(strike*1e4) / 1e4
	if strike <= 0 || math.IsNaN(strike) || math.IsInf(strike, 0) {
		return nil, &model.TradeError{Op: op, Ticker: ticker, Err: model.ErrInvalidStrike}
	}
	now := s.clock.Now()
	if expiry <= now {
		return nil, &model.TradeError{Op: op, Ticker: ticker, Err: model.ErrInvalidExpiry}
	}
	inst, err := s.instrument(ctx, op, ticker)
	if err != nil {
		return nil, err
	}

	key := model.OptionKey(ticker, variant, strike, expiry)
	if v, ok := s.cache.Get(key); ok {
		c := *v.(*model.OptionContract)
		return &c, nil
	}

	s.mintMu.Lock()
	defer s.mintMu.Unlock()

	c, err := s.backend.GetOption(ctx, key)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if c == nil {
		c = &model.OptionContract{
			ID:         uuid.NewString(),
			Underlying: ticker,
			Variant:    variant,
			Strike:     strike,
			ExpiryTick: expiry,
			Premium:    Premium(variant, inst.Price, strike, inst.Volatility, expiry-now, s.cfg.PremiumFactor),
			MintedTick: now,
		}
		if err := s.backend.SaveOption(ctx, c); err != nil {
			return nil, err
		}
		s.log.Debug("option minted", zap.String("key", key), zap.Float64("premium", c.Premium))
	}

	cached := *c
	s.cache.SetWithTTL(key, &cached, 1, s.cfg.CacheTTL)
	return c, nil
}
