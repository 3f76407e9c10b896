package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

const (
	tableInstruments = "instruments"
	tableFirms       = "firms"
	tablePortfolios  = "portfolios"
	tableOptions     = "options"
	tableLedger      = "ledger"
	ledgerKey        = "bank"
)

// Memory is an in-process Store. Documents are kept JSON-encoded so callers
// never share memory with stored records.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{tables: map[string]map[string][]byte{
		tableInstruments: {},
		tableFirms:       {},
		tablePortfolios:  {},
		tableOptions:     {},
		tableLedger:      {},
	}}
}

func (m *Memory) get(table, key string, v any) error {
	m.mu.RLock()
	data, ok := m.tables[table][key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s %q: %w", table, key, model.ErrNotFound)
	}
	return json.Unmarshal(data, v)
}

func (m *Memory) put(table, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", table, key, err)
	}
	m.mu.Lock()
	m.tables[table][key] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) keys(table string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables[table]))
	for k := range m.tables[table] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	keys := m.keys(tableInstruments)
	out := make([]model.Instrument, 0, len(keys))
	for _, k := range keys {
		var inst model.Instrument
		if err := m.get(tableInstruments, k, &inst); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (m *Memory) GetInstrument(_ context.Context, ticker string) (*model.Instrument, error) {
	var inst model.Instrument
	if err := m.get(tableInstruments, ticker, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (m *Memory) CreateInstrument(_ context.Context, inst *model.Instrument) error {
	return m.put(tableInstruments, inst.Ticker, inst)
}

func (m *Memory) ApplyPatches(_ context.Context, patches map[string]*patch.Patch, tick int64) (map[string]error, error) {
	failures := make(map[string]error)
	for ticker, p := range patches {
		var inst model.Instrument
		if err := m.get(tableInstruments, ticker, &inst); err != nil {
			failures[ticker] = err
			continue
		}
		if err := patch.Apply(&inst, p); err != nil {
			failures[ticker] = err
			continue
		}
		inst.UpdatedTick = tick
		if err := m.put(tableInstruments, ticker, &inst); err != nil {
			failures[ticker] = err
		}
	}
	return failures, nil
}

func (m *Memory) ListFirmIDs(_ context.Context) ([]string, error) {
	return m.keys(tableFirms), nil
}

func (m *Memory) GetFirm(_ context.Context, id string) (*model.Firm, error) {
	var f model.Firm
	if err := m.get(tableFirms, id, &f); err != nil {
		return nil, err
	}
	f.EnsureDefaults()
	return &f, nil
}

func (m *Memory) SaveFirm(_ context.Context, f *model.Firm) error {
	return m.put(tableFirms, f.ID, f)
}

func (m *Memory) ListOwners(_ context.Context) ([]string, error) {
	return m.keys(tablePortfolios), nil
}

func (m *Memory) GetPortfolio(_ context.Context, owner string) (*model.Portfolio, error) {
	var p model.Portfolio
	if err := m.get(tablePortfolios, owner, &p); err != nil {
		return nil, err
	}
	p.EnsureDefaults()
	return &p, nil
}

func (m *Memory) SavePortfolio(_ context.Context, p *model.Portfolio) error {
	return m.put(tablePortfolios, p.Owner, p)
}

func (m *Memory) GetOption(_ context.Context, key string) (*model.OptionContract, error) {
	var c model.OptionContract
	if err := m.get(tableOptions, key, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Memory) SaveOption(_ context.Context, c *model.OptionContract) error {
	return m.put(tableOptions, c.Key(), c)
}

func (m *Memory) LoadLedger(_ context.Context) (*model.Ledger, error) {
	var l model.Ledger
	err := m.get(tableLedger, ledgerKey, &l)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return &l, nil
}

func (m *Memory) SaveLedger(_ context.Context, l *model.Ledger) error {
	return m.put(tableLedger, ledgerKey, l)
}

func (m *Memory) Close() error { return nil }
