package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/patch"
)

// SQLite stores every entity as a JSON document in its own table.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps writers serialized inside SQLite.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instruments (
			ticker       TEXT PRIMARY KEY,
			sector       TEXT,
			updated_tick INTEGER NOT NULL DEFAULT 0,
			doc          TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instruments_sector ON instruments(sector)`,
		`CREATE TABLE IF NOT EXISTS firms (
			id  TEXT PRIMARY KEY,
			doc TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolios (
			owner TEXT PRIMARY KEY,
			doc   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS options (
			contract_key TEXT PRIMARY KEY,
			underlying   TEXT,
			expiry       INTEGER,
			doc          TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger (
			id  TEXT PRIMARY KEY,
			doc TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getDoc(ctx context.Context, q querier, table, keyCol, key string, v any) error {
	var doc string
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE %s = ?", table, keyCol), key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", table, key, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s %q: %w", table, key, err)
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return fmt.Errorf("decode %s %q: %w", table, key, err)
	}
	return nil
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return string(data), nil
}

func (s *SQLite) keys(ctx context.Context, table, keyCol string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", keyCol, table, keyCol))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLite) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ticker, doc FROM instruments ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()
	var out []model.Instrument
	for rows.Next() {
		var ticker, doc string
		if err := rows.Scan(&ticker, &doc); err != nil {
			return nil, err
		}
		var inst model.Instrument
		if err := json.Unmarshal([]byte(doc), &inst); err != nil {
			s.log.Warn("skipping undecodable instrument", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *SQLite) GetInstrument(ctx context.Context, ticker string) (*model.Instrument, error) {
	var inst model.Instrument
	if err := getDoc(ctx, s.db, "instruments", "ticker", ticker, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *SQLite) CreateInstrument(ctx context.Context, inst *model.Instrument) error {
	doc, err := encode(inst)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO instruments (ticker, sector, updated_tick, doc) VALUES (?,?,?,?)`,
		inst.Ticker, inst.Sector, inst.UpdatedTick, doc)
	if err != nil {
		return fmt.Errorf("create instrument %s: %w", inst.Ticker, err)
	}
	return nil
}

func (s *SQLite) ApplyPatches(ctx context.Context, patches map[string]*patch.Patch, tick int64) (map[string]error, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin patch batch: %w", err)
	}
	defer tx.Rollback()

	failures := make(map[string]error)
	for ticker, p := range patches {
		var inst model.Instrument
		if err := getDoc(ctx, tx, "instruments", "ticker", ticker, &inst); err != nil {
			failures[ticker] = err
			continue
		}
		if err := patch.Apply(&inst, p); err != nil {
			failures[ticker] = err
			continue
		}
		inst.UpdatedTick = tick
		doc, err := encode(&inst)
		if err != nil {
			failures[ticker] = err
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE instruments SET doc = ?, updated_tick = ? WHERE ticker = ?`, doc, tick, ticker); err != nil {
			failures[ticker] = fmt.Errorf("write instrument %s: %w", ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit patch batch: %w", err)
	}
	return failures, nil
}

func (s *SQLite) ListFirmIDs(ctx context.Context) ([]string, error) {
	return s.keys(ctx, "firms", "id")
}

func (s *SQLite) GetFirm(ctx context.Context, id string) (*model.Firm, error) {
	var f model.Firm
	if err := getDoc(ctx, s.db, "firms", "id", id, &f); err != nil {
		return nil, err
	}
	f.EnsureDefaults()
	return &f, nil
}

func (s *SQLite) SaveFirm(ctx context.Context, f *model.Firm) error {
	doc, err := encode(f)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO firms (id, doc) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, f.ID, doc)
	if err != nil {
		return fmt.Errorf("save firm %s: %w", f.ID, err)
	}
	return nil
}

func (s *SQLite) ListOwners(ctx context.Context) ([]string, error) {
	return s.keys(ctx, "portfolios", "owner")
}

func (s *SQLite) GetPortfolio(ctx context.Context, owner string) (*model.Portfolio, error) {
	var p model.Portfolio
	if err := getDoc(ctx, s.db, "portfolios", "owner", owner, &p); err != nil {
		return nil, err
	}
	p.EnsureDefaults()
	return &p, nil
}

func (s *SQLite) SavePortfolio(ctx context.Context, p *model.Portfolio) error {
	doc, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO portfolios (owner, doc) VALUES (?, ?) ON CONFLICT(owner) DO UPDATE SET doc = excluded.doc`, p.Owner, doc)
	if err != nil {
		return fmt.Errorf("save portfolio %s: %w", p.Owner, err)
	}
	return nil
}

func (s *SQLite) GetOption(ctx context.Context, key string) (*model.OptionContract, error) {
	var c model.OptionContract
	if err := getDoc(ctx, s.db, "options", "contract_key", key, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLite) SaveOption(ctx context.Context, c *model.OptionContract) error {
	doc, err := encode(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO options (contract_key, underlying, expiry, doc) VALUES (?,?,?,?)
		 ON CONFLICT(contract_key) DO UPDATE SET doc = excluded.doc`, c.Key(), c.Underlying, c.ExpiryTick, doc)
	if err != nil {
		return fmt.Errorf("save option %s: %w", c.Key(), err)
	}
	return nil
}

func (s *SQLite) LoadLedger(ctx context.Context) (*model.Ledger, error) {
	var l model.Ledger
	if err := getDoc(ctx, s.db, "ledger", "id", ledgerKey, &l); err != nil && !isNotFound(err) {
		return nil, err
	}
	return &l, nil
}

func (s *SQLite) SaveLedger(ctx context.Context, l *model.Ledger) error {
	doc, err := encode(l)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ledger (id, doc) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, ledgerKey, doc)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
