package calculator

// Stats summarizes an instrument's trailing price history.
type Stats struct {
	SMA20    float64 `json:"sma20"`
	RSI14    float64 `json:"rsi14"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Position float64 `json:"position"`
}

// Summarize computes Stats over history. Indicators without enough data are
// left at their zero value, except RSI which defaults to 50.
func Summarize(history []float64) Stats {
	var s Stats
	if sma, err := SMA(history, 20); err == nil {
		s.SMA20 = sma
	}
	s.RSI14, _ = RSI(history, 14)
	if high, low, err := Range(history, 0); err == nil {
		s.High, s.Low = high, low
		s.Position, _ = Position(history[len(history)-1], high, low)
	}
	return s
}
