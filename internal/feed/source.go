package feed

import (
	"context"
	"sort"

	"github.com/TheFaucett/stock-game-sub000/internal/news"
)

// Headline is one story as delivered by a news source.
type Headline struct {
	Description    string  `json:"description"`
	SentimentScore float64 `json:"sentimentScore"`
}

// Batch maps a scope key (ticker, sector, or "global") to its headlines.
type Batch map[string][]Headline

// Source defines the interface for fetching pending news.
type Source interface {
	Fetch(ctx context.Context, tick int64) (Batch, error)
	Name() string
}

// Flatten converts a batch into news items, tagging each with the scope its
// key resolves to. Keys are visited in sorted order so results are stable.
func Flatten(batch Batch, tickers, sectors map[string]bool) []news.Item {
	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []news.Item
	for _, key := range keys {
		scope := news.ScopeGlobal
		switch {
		case tickers[key]:
			scope = news.ScopeTicker
		case sectors[key]:
			scope = news.ScopeSector
		case key != news.GlobalTarget:
			// unknown keys still flow through; the layer drops them
			scope = news.ScopeTicker
		}
		for _, h := range batch[key] {
			items = append(items, news.Item{
				Target:    key,
				Scope:     scope,
				Summary:   h.Description,
				Sentiment: h.SentimentScore,
			})
		}
	}
	return items
}

// Static returns the same batch on every call.
type Static struct {
	Batch Batch
}

func (s *Static) Name() string { return "static" }

func (s *Static) Fetch(_ context.Context, _ int64) (Batch, error) {
	return s.Batch, nil
}
