package model

import "fmt"

// OptionVariant is call or put.
type OptionVariant string

const (
	Call OptionVariant = "call"
	Put  OptionVariant = "put"
)

// OptionContract is minted lazily and shared by every holder of the same
// (underlying, variant, strike, expiry).
type OptionContract struct {
	ID         string        `json:"id"`
	Underlying string        `json:"underlying"`
	Variant    OptionVariant `json:"variant"`
	Strike     float64       `json:"strike"`
	ExpiryTick int64         `json:"expiry_tick"`
	Premium    float64       `json:"premium"` // per share, at mint time
	MintedTick int64         `json:"minted_tick"`
}

// OptionKey is the natural key of a contract.
func OptionKey(underlying string, variant OptionVariant, strike float64, expiry int64) string {
	return fmt.Sprintf("%s:%s:%.4f:%d", underlying, variant, strike, expiry)
}

// Key returns the contract's natural key.
func (c *OptionContract) Key() string {
	return OptionKey(c.Underlying, c.Variant, c.Strike, c.ExpiryTick)
}

// Intrinsic is the per-share exercise value at spot.
func Intrinsic(variant OptionVariant, strike, spot float64) float64 {
	switch variant {
	case Call:
		if spot > strike {
			return spot - strike
		}
	case Put:
		if strike > spot {
			return strike - spot
		}
	}
	return 0
}
