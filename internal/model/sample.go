package model

import "time"

// History caps for the aggregate recorders.
const (
	MoodHistoryLimit  = 30
	IndexHistoryLimit = 1825
)

// MoodLabel classifies a bullishness value.
type MoodLabel string

const (
	MoodBullish MoodLabel = "bullish"
	MoodNeutral MoodLabel = "neutral"
	MoodBearish MoodLabel = "bearish"
)

// Sample is one timestamped scalar in a bounded history.
type Sample struct {
	Tick      int64     `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Label     MoodLabel `json:"label,omitempty"`
}
