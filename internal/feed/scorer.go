package feed

import (
	"strings"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
)

// Scorer turns headline text into a sentiment score in [-10,10].
type Scorer interface {
	Score(text string) float64
}

// LexiconScorer counts weighted positive and negative words.
type LexiconScorer struct {
	Words map[string]float64
}

// NewLexiconScorer returns a scorer with a small built-in financial lexicon.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{Words: map[string]float64{
		"record": 3, "beats": 4, "surges": 5, "soars": 6, "upgrade": 4,
		"growth": 2, "profit": 3, "expands": 2, "breakthrough": 6, "approval": 5,
		"misses": -4, "plunges": -6, "downgrade": -4, "lawsuit": -5, "recall": -5,
		"losses": -3, "layoffs": -4, "probe": -3, "shortage": -3, "bankruptcy": -8,
	}}
}

func (s *LexiconScorer) Score(text string) float64 {
	total := 0.0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		total += s.Words[strings.Trim(w, ".,!?;:\"'")]
	}
	return calculator.Clamp(total, -10, 10)
}
