package market

import (
	"math"
	"sync"
	"time"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Mood thresholds on the [0,1] bullishness scale.
const (
	BullishAbove = 0.6
	BearishBelow = 0.4
)

// Mood maps the average percent change through tanh onto [0,1].
func Mood(instruments []model.Instrument) (float64, model.MoodLabel) {
	changes := make([]float64, 0, len(instruments))
	for i := range instruments {
		changes = append(changes, instruments[i].LastChange)
	}
	v := (math.Tanh(calculator.Mean(changes)) + 1) / 2
	return v, Label(v)
}

// Label classifies a mood value.
func Label(v float64) model.MoodLabel {
	switch {
	case v > BullishAbove:
		return model.MoodBullish
	case v < BearishBelow:
		return model.MoodBearish
	default:
		return model.MoodNeutral
	}
}

// Index is the arithmetic mean price of the universe.
func Index(instruments []model.Instrument) float64 {
	prices := make([]float64, 0, len(instruments))
	for i := range instruments {
		prices = append(prices, instruments[i].Price)
	}
	return calculator.Mean(prices)
}

// History is a bounded, ordered sample buffer safe for concurrent readers.
type History struct {
	mu      sync.RWMutex
	limit   int
	samples []model.Sample
}

// NewHistory returns an empty history holding at most limit samples.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add appends a sample, dropping the oldest beyond the limit.
func (h *History) Add(s model.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, s)
	if over := len(h.samples) - h.limit; h.limit > 0 && over > 0 {
		h.samples = append(h.samples[:0:0], h.samples[over:]...)
	}
}

// Record appends a new sample stamped with now.
func (h *History) Record(tick int64, now time.Time, value float64, label model.MoodLabel) model.Sample {
	s := model.Sample{Tick: tick, Timestamp: now, Value: value, Label: label}
	h.Add(s)
	return s
}

// Samples returns a copy, oldest first.
func (h *History) Samples() []model.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]model.Sample(nil), h.samples...)
}

// Len returns the number of samples held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Last returns the newest sample.
func (h *History) Last() (model.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.samples) == 0 {
		return model.Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}
