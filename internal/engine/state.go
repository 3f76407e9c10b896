package engine

import (
	"github.com/TheFaucett/stock-game-sub000/internal/clock"
	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/market"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/profile"
)

// State is everything a simulation carries between ticks. Two engines built
// on separate States share nothing.
type State struct {
	Clock    *clock.Clock
	Profiles *profile.Registry
	Overlay  *macro.Overlay
	Economy  *macro.Environment
	Mood     *market.History
	Index    *market.History
}

func newState(profiles *profile.Registry, overlay *macro.Overlay, economy *macro.Environment) *State {
	return &State{
		Clock:    clock.New(),
		Profiles: profiles,
		Overlay:  overlay,
		Economy:  economy,
		Mood:     market.NewHistory(model.MoodHistoryLimit),
		Index:    market.NewHistory(model.IndexHistoryLimit),
	}
}
