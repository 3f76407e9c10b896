package trading

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

func (s *Service) txn(side model.Side, ticker string, shares int64, price float64, total decimal.Decimal) model.Transaction {
	return model.Transaction{
		ID:     uuid.NewString(),
		Tick:   s.clock.Now(),
		Side:   side,
		Ticker: ticker,
		Shares: shares,
		Price:  price,
		Total:  total,
	}
}

func cost(price float64, shares int64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
}

// Buy purchases shares of ticker at the current price.
func (s *Service) Buy(ctx context.Context, owner, ticker string, shares int64) (model.Transaction, error) {
	if shares <= 0 {
		return model.Transaction{}, &model.TradeError{Op: "buy", Ticker: ticker, Err: model.ErrInvalidQuantity}
	}
	inst, err := s.instrument(ctx, "buy", ticker)
	if err != nil {
		return model.Transaction{}, err
	}
	var tx model.Transaction
	err = s.Update(ctx, owner, func(p *model.Portfolio) error {
		total := cost(inst.Price, shares)
		if total.GreaterThan(p.Cash) {
			return &model.TradeError{Op: "buy", Ticker: ticker, Err: model.ErrInsufficientFunds}
		}
		p.Cash = p.Cash.Sub(total)
		p.Holdings[ticker] += shares
		tx = s.txn(model.SideBuy, ticker, shares, inst.Price, total)
		p.Transactions = append(p.Transactions, tx)
		return nil
	})
	return tx, err
}

// Sell disposes of owned shares of ticker at the current price.
func (s *Service) Sell(ctx context.Context, owner, ticker string, shares int64) (model.Transaction, error) {
	if shares <= 0 {
		return model.Transaction{}, &model.TradeError{Op: "sell", Ticker: ticker, Err: model.ErrInvalidQuantity}
	}
	inst, err := s.instrument(ctx, "sell", ticker)
	if err != nil {
		return model.Transaction{}, err
	}
	var tx model.Transaction
	err = s.Update(ctx, owner, func(p *model.Portfolio) error {
		if p.Holdings[ticker] < shares {
			return &model.TradeError{Op: "sell", Ticker: ticker, Err: model.ErrInsufficientHoldings}
		}
		total := cost(inst.Price, shares)
		p.Cash = p.Cash.Add(total)
		p.Holdings[ticker] -= shares
		if p.Holdings[ticker] == 0 {
			delete(p.Holdings, ticker)
		}
		tx = s.txn(model.SideSell, ticker, shares, inst.Price, total)
		p.Transactions = append(p.Transactions, tx)
		return nil
	})
	return tx, err
}

// Short borrows and sells shares of ticker. The position must be covered
// before ShortTerm ticks pass or it is force-covered at settlement.
func (s *Service) Short(ctx context.Context, owner, ticker string, shares int64) (model.Transaction, error) {
	if shares <= 0 {
		return model.Transaction{}, &model.TradeError{Op: "short", Ticker: ticker, Err: model.ErrInvalidQuantity}
	}
	inst, err := s.instrument(ctx, "short", ticker)
	if err != nil {
		return model.Transaction{}, err
	}
	var tx model.Transaction
	err = s.Update(ctx, owner, func(p *model.Portfolio) error {
		total := cost(inst.Price, shares)
		// Shorting requires cash covering the position at today's price.
		if total.GreaterThan(p.Cash) {
			return &model.TradeError{Op: "short", Ticker: ticker, Err: model.ErrInsufficientFunds}
		}
		p.Cash = p.Cash.Add(total)
		p.Borrowed[ticker] += shares
		tx = s.txn(model.SideShort, ticker, shares, inst.Price, total)
		tx.Open = shares
		tx.Status = model.TxOpen
		tx.ExpiryTick = tx.Tick + s.cfg.ShortTerm
		p.Transactions = append(p.Transactions, tx)
		return nil
	})
	return tx, err
}

// Cover buys back borrowed shares, closing the oldest open shorts first.
func (s *Service) Cover(ctx context.Context, owner, ticker string, shares int64) (model.Transaction, error) {
	if shares <= 0 {
		return model.Transaction{}, &model.TradeError{Op: "cover", Ticker: ticker, Err: model.ErrInvalidQuantity}
	}
	inst, err := s.instrument(ctx, "cover", ticker)
	if err != nil {
		return model.Transaction{}, err
	}
	var tx model.Transaction
	err = s.Update(ctx, owner, func(p *model.Portfolio) error {
		if p.Borrowed[ticker] < shares {
			return &model.TradeError{Op: "cover", Ticker: ticker, Err: model.ErrInsufficientHoldings}
		}
		total := cost(inst.Price, shares)
		if total.GreaterThan(p.Cash) {
			return &model.TradeError{Op: "cover", Ticker: ticker, Err: model.ErrInsufficientFunds}
		}
		p.Cash = p.Cash.Sub(total)
		p.Borrowed[ticker] -= shares
		if p.Borrowed[ticker] == 0 {
			delete(p.Borrowed, ticker)
		}
		closeShorts(p, ticker, shares, model.TxCovered)
		tx = s.txn(model.SideCover, ticker, shares, inst.Price, total)
		p.Transactions = append(p.Transactions, tx)
		return nil
	})
	return tx, err
}

// closeShorts reduces open short transactions on ticker oldest first,
// marking fully closed ones with status.
func closeShorts(p *model.Portfolio, ticker string, shares int64, status model.TxStatus) {
	for i := range p.Transactions {
		if shares == 0 {
			return
		}
		t := &p.Transactions[i]
		if t.Side != model.SideShort || t.Status != model.TxOpen || t.Ticker != ticker {
			continue
		}
		n := t.Open
		if n > shares {
			n = shares
		}
		t.Open -= n
		shares -= n
		if t.Open == 0 {
			t.Status = status
		}
	}
}

// BuyCall buys call contracts on ticker.
func (s *Service) BuyCall(ctx context.Context, owner, ticker string, strike float64, expiry, contracts int64) (model.Transaction, error) {
	return s.buyOption(ctx, owner, ticker, model.Call, strike, expiry, contracts)
}

// BuyPut buys put contracts on ticker.
func (s *Service) BuyPut(ctx context.Context, owner, ticker string, strike float64, expiry, contracts int64) (model.Transaction, error) {
	return s.buyOption(ctx, owner, ticker, model.Put, strike, expiry, contracts)
}

func (s *Service) buyOption(ctx context.Context, owner, ticker string, variant model.OptionVariant, strike float64, expiry, contracts int64) (model.Transaction, error) {
	op := string(variant)
	if contracts <= 0 {
		return model.Transaction{}, &model.TradeError{Op: op, Ticker: ticker, Err: model.ErrInvalidQuantity}
	}
	c, err := s.Quote(ctx, ticker, variant, strike, expiry)
	if err != nil {
		return model.Transaction{}, err
	}
	var tx model.Transaction
	err = s.Update(ctx, owner, func(p *model.Portfolio) error {
		units := contracts * s.cfg.OptionMultiplier
		total := cost(c.Premium, units)
		if total.GreaterThan(p.Cash) {
			return &model.TradeError{Op: op, Ticker: ticker, Err: model.ErrInsufficientFunds}
		}
		p.Cash = p.Cash.Sub(total)
		side := model.SideCall
		if variant == model.Put {
			side = model.SidePut
		}
		tx = s.txn(side, ticker, 0, c.Premium, total)
		tx.ContractID = c.ID
		tx.Strike = c.Strike
		tx.ExpiryTick = c.ExpiryTick
		tx.Contracts = contracts
		tx.Status = model.TxOpen
		p.Transactions = append(p.Transactions, tx)
		return nil
	})
	return tx, err
}
