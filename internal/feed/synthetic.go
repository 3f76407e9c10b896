package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/TheFaucett/stock-game-sub000/internal/news"
)

var tickerTemplates = []string{
	"%s beats quarterly estimates on record profit",
	"%s misses revenue targets as costs climb",
	"%s soars after breakthrough product launch",
	"%s plunges amid regulatory probe",
	"%s announces layoffs to cut losses",
	"analysts issue upgrade for %s",
	"analysts issue downgrade for %s",
	"%s faces lawsuit over product recall",
	"%s expands into new markets",
	"%s holds annual shareholder meeting",
}

var sectorTemplates = []string{
	"%s sector surges on growth outlook",
	"%s sector hit by supply shortage",
	"regulators open probe into %s sector",
	"%s sector sees steady demand",
}

var globalTemplates = []string{
	"central bank signals growth ahead",
	"global markets brace for recession fears and losses",
	"trade deal approval lifts sentiment",
	"markets quiet ahead of holiday",
}

// Synthetic generates headlines from templates and scores them.
type Synthetic struct {
	mu      sync.Mutex
	rng     *rand.Rand
	scorer  Scorer
	tickers []string
	sectors []string
	rate    float64
}

// NewSynthetic returns a generator that, on average, emits rate headlines
// per tick across the given tickers and sectors.
func NewSynthetic(rng *rand.Rand, scorer Scorer, tickers, sectors []string, rate float64) *Synthetic {
	return &Synthetic{rng: rng, scorer: scorer, tickers: tickers, sectors: sectors, rate: rate}
}

func (s *Synthetic) Name() string { return "synthetic" }

// Fetch never fails.
func (s *Synthetic) Fetch(_ context.Context, _ int64) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(Batch)
	n := s.count()
	for i := 0; i < n; i++ {
		roll := s.rng.Float64()
		switch {
		case roll < 0.7 && len(s.tickers) > 0:
			t := s.tickers[s.rng.Intn(len(s.tickers))]
			s.add(batch, t, fmt.Sprintf(tickerTemplates[s.rng.Intn(len(tickerTemplates))], t))
		case roll < 0.9 && len(s.sectors) > 0:
			sec := s.sectors[s.rng.Intn(len(s.sectors))]
			s.add(batch, sec, fmt.Sprintf(sectorTemplates[s.rng.Intn(len(sectorTemplates))], sec))
		default:
			s.add(batch, news.GlobalTarget, globalTemplates[s.rng.Intn(len(globalTemplates))])
		}
	}
	return batch, nil
}

// count draws the number of headlines this tick: the integer part of rate
// plus one more with probability equal to the fraction.
func (s *Synthetic) count() int {
	n := int(s.rate)
	if s.rng.Float64() < s.rate-float64(n) {
		n++
	}
	return n
}

func (s *Synthetic) add(batch Batch, key, text string) {
	batch[key] = append(batch[key], Headline{Description: text, SentimentScore: s.scorer.Score(text)})
}
