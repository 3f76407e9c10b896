package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets dashboards read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mood_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			tick      INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			value     REAL,
			label     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_tick ON mood_history(tick)`,

		`CREATE TABLE IF NOT EXISTS index_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			tick      INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			value     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_index_tick ON index_history(tick)`,

		`CREATE TABLE IF NOT EXISTS tick_log (
			tick              INTEGER PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			profile           TEXT,
			momentum          REAL,
			inflation_rate    REAL,
			currency_strength REAL,
			shock             INTEGER,
			news_items        INTEGER,
			patched           INTEGER,
			patch_failures    INTEGER,
			trades            INTEGER,
			options_settled   INTEGER,
			loan_payments     INTEGER,
			mood              REAL,
			market_index      REAL,
			duration_ms       INTEGER,
			sector_bias       TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}

	// tick_log rows written before sector_bias existed
	if _, err := r.db.Exec(`ALTER TABLE tick_log ADD COLUMN sector_bias TEXT`); err != nil &&
		!strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("add sector_bias column: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordMood(s model.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO mood_history (tick, timestamp, value, label) VALUES (?,?,?,?)`,
		s.Tick, s.Timestamp.UnixMilli(), s.Value, string(s.Label))
	return err
}

func (r *SQLiteRecorder) RecordIndex(s model.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO index_history (tick, timestamp, value) VALUES (?,?,?)`,
		s.Tick, s.Timestamp.UnixMilli(), s.Value)
	return err
}

func (r *SQLiteRecorder) RecordTick(evt *TickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bias, err := json.Marshal(evt.SectorBias)
	if err != nil {
		return fmt.Errorf("encode sector bias: %w", err)
	}
	_, err = r.db.Exec(`INSERT OR REPLACE INTO tick_log
		(tick, timestamp, profile, momentum, inflation_rate, currency_strength, shock,
		 news_items, patched, patch_failures, trades, options_settled, loan_payments,
		 mood, market_index, duration_ms, sector_bias)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.Tick, time.Now().Unix(), evt.Profile, evt.Momentum,
		evt.InflationRate, evt.CurrencyStrength, evt.Shock,
		evt.NewsItems, evt.Patched, evt.PatchFailures, evt.Trades,
		evt.OptionsSettled, evt.LoanPayments,
		evt.Mood, evt.Index, evt.DurationMs, string(bias),
	)
	return err
}

func (r *SQLiteRecorder) LoadMood(limit int) ([]model.Sample, error) {
	return r.loadSamples(`SELECT tick, timestamp, value, label FROM
		(SELECT * FROM mood_history ORDER BY id DESC LIMIT ?) ORDER BY id`, limit, true)
}

func (r *SQLiteRecorder) LoadIndex(limit int) ([]model.Sample, error) {
	return r.loadSamples(`SELECT tick, timestamp, value, '' FROM
		(SELECT * FROM index_history ORDER BY id DESC LIMIT ?) ORDER BY id`, limit, false)
}

func (r *SQLiteRecorder) loadSamples(query string, limit int, labeled bool) ([]model.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	defer rows.Close()

	var out []model.Sample
	for rows.Next() {
		var (
			s     model.Sample
			ms    int64
			label string
		)
		if err := rows.Scan(&s.Tick, &ms, &s.Value, &label); err != nil {
			return nil, err
		}
		s.Timestamp = time.UnixMilli(ms)
		if labeled {
			s.Label = model.MoodLabel(label)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) LastTick() (*TickEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		evt  TickEvent
		bias sql.NullString
	)
	err := r.db.QueryRow(`SELECT tick, profile, momentum, inflation_rate, currency_strength, sector_bias
		FROM tick_log ORDER BY tick DESC LIMIT 1`).
		Scan(&evt.Tick, &evt.Profile, &evt.Momentum, &evt.InflationRate, &evt.CurrencyStrength, &bias)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last tick: %w", err)
	}
	if bias.Valid && bias.String != "" && bias.String != "null" {
		if err := json.Unmarshal([]byte(bias.String), &evt.SectorBias); err != nil {
			return nil, fmt.Errorf("decode sector bias at tick %d: %w", evt.Tick, err)
		}
	}
	return &evt, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
