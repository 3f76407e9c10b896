package recorder

import "github.com/TheFaucett/stock-game-sub000/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordMood(_ model.Sample) error         { return nil }
func (n *NoopRecorder) RecordIndex(_ model.Sample) error        { return nil }
func (n *NoopRecorder) RecordTick(_ *TickEvent) error           { return nil }
func (n *NoopRecorder) LoadMood(_ int) ([]model.Sample, error)  { return nil, nil }
func (n *NoopRecorder) LoadIndex(_ int) ([]model.Sample, error) { return nil, nil }
func (n *NoopRecorder) LastTick() (*TickEvent, error)           { return nil, nil }
func (n *NoopRecorder) Close() error                            { return nil }
