package calculator

import (
	"errors"
	"math"
)

// Range scans the most recent window prices and returns the high and low.
// A window of 0 scans the whole slice.
func Range(prices []float64, window int) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	n := len(prices)
	start := 0
	if window > 0 && n > window {
		start = n - window
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if prices[i] > high {
			high = prices[i]
		}
		if prices[i] < low {
			low = prices[i]
		}
	}
	return high, low, nil
}

// Position returns where current sits within [low, high] (0.0~1.0).
func Position(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return Clamp((current-low)/(high-low), 0, 1), nil
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TrimTail keeps the newest limit entries. A limit of 0 keeps everything.
func TrimTail(values []float64, limit int) []float64 {
	if limit > 0 && len(values) > limit {
		return values[len(values)-limit:]
	}
	return values
}
