package model

import "errors"

var (
	// ErrUnknownTicker is returned when a ticker is not part of the universe.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrInsufficientFunds is returned when a cash balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings is returned when a sell or cover exceeds the position.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrInvalidQuantity is returned for zero or negative share/contract counts.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidExpiry is returned when an option expiry is not in the future.
	ErrInvalidExpiry = errors.New("invalid expiry")

	// ErrInvalidStrike is returned for non-positive strikes.
	ErrInvalidStrike = errors.New("invalid strike")

	// ErrInvalidVariant is returned for option variants other than call and put.
	ErrInvalidVariant = errors.New("invalid option variant")

	// ErrInvalidOwner is returned when a request names no account owner.
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrInvalidAmount is returned for non-positive principal or deposit amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when acting on a closed loan or deposit.
	ErrClosed = errors.New("already closed")

	// ErrMalformedRecord marks a persisted record with inconsistent fields.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownField is returned when a patch targets a field the writer does not know.
	ErrUnknownField = errors.New("unknown patch field")
)

var validationErrors = []error{
	ErrUnknownTicker, ErrInsufficientFunds, ErrInsufficientHoldings,
	ErrInvalidQuantity, ErrInvalidExpiry, ErrInvalidStrike, ErrInvalidVariant,
	ErrInvalidOwner, ErrInvalidAmount, ErrClosed,
}

// TradeError wraps a rejected trade or bank request.
type TradeError struct {
	Op     string
	Ticker string
	Err    error
}

func (e *TradeError) Error() string {
	if e.Ticker == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Ticker + ": " + e.Err.Error()
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a caller-facing validation failure.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
