package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/TheFaucett/stock-game-sub000/internal/engine"
	"github.com/TheFaucett/stock-game-sub000/internal/firm"
	"github.com/TheFaucett/stock-game-sub000/internal/logging"
	"github.com/TheFaucett/stock-game-sub000/internal/macro"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
	"github.com/TheFaucett/stock-game-sub000/internal/news"
	"github.com/TheFaucett/stock-game-sub000/internal/publisher"
)

// News source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceRemote    = "remote"
	SourceNone      = "none"
)

// Config holds all application configuration.
type Config struct {
	Simulation struct {
		TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
		Seed         int64         `yaml:"seed" env:"SIM_SEED"`
		Profile      string        `yaml:"profile" env:"MARKET_PROFILE"`
		ProfilesFile string        `yaml:"profiles_file" env:"PROFILES_FILE"`
		Workers      int           `yaml:"workers" env:"SIM_WORKERS"`
		RunOnStart   bool          `yaml:"run_on_start" env:"RUN_ON_START"`
	} `yaml:"simulation"`
	News struct {
		news.Params `yaml:",inline"`
		Source      string        `yaml:"source" env:"NEWS_SOURCE"`
		Rate        float64       `yaml:"rate" env:"NEWS_RATE"`
		BaseURL     string        `yaml:"base_url" env:"NEWS_BASE_URL"`
		Path        string        `yaml:"path" env:"NEWS_PATH"`
		Timeout     time.Duration `yaml:"timeout" env:"NEWS_TIMEOUT"`
	} `yaml:"news"`
	Macro   macro.OverlayParams `yaml:"macro"`
	Economy macro.EnvParams     `yaml:"economy"`
	Firms   firm.Params         `yaml:"firms"`
	Trading struct {
		StartingBalance  float64       `yaml:"starting_balance" env:"STARTING_BALANCE"`
		OptionMultiplier int64         `yaml:"option_multiplier" env:"OPTION_MULTIPLIER"`
		ShortTerm        int64         `yaml:"short_term"`
		PremiumFactor    float64       `yaml:"premium_factor"`
		CacheTTL         time.Duration `yaml:"cache_ttl"`
	} `yaml:"trading"`
	Bank struct {
		LoanRate    float64 `yaml:"loan_rate" env:"LOAN_RATE"`
		DepositRate float64 `yaml:"deposit_rate" env:"DEPOSIT_RATE"`
		MaxTerm     int64   `yaml:"max_term"`
		MaxLoan     float64 `yaml:"max_loan"`
	} `yaml:"bank"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
		HistoryPath string `yaml:"history_path" env:"HISTORY_PATH"`
		InMemory    bool   `yaml:"in_memory" env:"IN_MEMORY"`
	} `yaml:"database"`
	Logging struct {
		Level      string `yaml:"level" env:"LOG_LEVEL"`
		File       string `yaml:"file" env:"LOG_FILE"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	} `yaml:"kafka"`
	Universe model.Universe `yaml:"universe"`
}

// Load reads an optional .env file, then the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.News.Params = news.DefaultParams()
	cfg.Macro = macro.DefaultOverlayParams()
	cfg.Economy = macro.DefaultEnvParams()
	cfg.Firms = firm.DefaultParams()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides. The universe carries no env tags and
	// is left to the file.
	for _, section := range []any{
		&cfg.Simulation, &cfg.News, &cfg.Trading, &cfg.Bank,
		&cfg.Database, &cfg.Logging, &cfg.Kafka,
	} {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
	}

	// Defaults
	if cfg.Simulation.TickInterval == 0 {
		cfg.Simulation.TickInterval = 5 * time.Second
	}
	if cfg.Simulation.Profile == "" {
		cfg.Simulation.Profile = "default"
	}
	if cfg.Simulation.Workers == 0 {
		cfg.Simulation.Workers = 8
	}
	if cfg.News.Source == "" {
		cfg.News.Source = SourceSynthetic
	}
	if cfg.News.Rate == 0 {
		cfg.News.Rate = 1
	}
	if cfg.News.Timeout == 0 {
		cfg.News.Timeout = 10 * time.Second
	}
	if cfg.News.Path == "" {
		cfg.News.Path = "/news"
	}
	if cfg.Trading.StartingBalance == 0 {
		cfg.Trading.StartingBalance = 10000
	}
	if cfg.Trading.OptionMultiplier == 0 {
		cfg.Trading.OptionMultiplier = 100
	}
	if cfg.Trading.ShortTerm == 0 {
		cfg.Trading.ShortTerm = 30
	}
	if cfg.Trading.PremiumFactor == 0 {
		cfg.Trading.PremiumFactor = 0.4
	}
	if cfg.Trading.CacheTTL == 0 {
		cfg.Trading.CacheTTL = 10 * time.Minute
	}
	if cfg.Bank.LoanRate == 0 {
		cfg.Bank.LoanRate = 0.01
	}
	if cfg.Bank.DepositRate == 0 {
		cfg.Bank.DepositRate = 0.002
	}
	if cfg.Bank.MaxTerm == 0 {
		cfg.Bank.MaxTerm = 365
	}
	if cfg.Bank.MaxLoan == 0 {
		cfg.Bank.MaxLoan = 100000
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stock_game.db"
	}
	if cfg.Database.HistoryPath == "" {
		cfg.Database.HistoryPath = "data/history.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 50
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 28
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a simulation.
func (c *Config) Validate() error {
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if c.Simulation.Workers <= 0 {
		return fmt.Errorf("simulation.workers must be positive")
	}
	switch c.News.Source {
	case SourceSynthetic, SourceNone:
	case SourceRemote:
		if c.News.BaseURL == "" {
			return fmt.Errorf("news.base_url is required for the remote source")
		}
	default:
		return fmt.Errorf("news.source %q is not one of synthetic, remote, none", c.News.Source)
	}
	if c.News.ItemImpactCap <= 0 || c.News.TickImpactCap < c.News.ItemImpactCap {
		return fmt.Errorf("news caps must satisfy 0 < item_impact_cap <= tick_impact_cap")
	}
	if c.Economy.ShockProbability < 0 || c.Economy.ShockProbability > 1 {
		return fmt.Errorf("economy.shock_probability must be within [0,1]")
	}
	if c.Trading.StartingBalance <= 0 {
		return fmt.Errorf("trading.starting_balance must be positive")
	}
	if c.Trading.OptionMultiplier <= 0 {
		return fmt.Errorf("trading.option_multiplier must be positive")
	}
	if c.Bank.LoanRate < 0 || c.Bank.DepositRate < 0 {
		return fmt.Errorf("bank rates must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return c.validateUniverse()
}

func (c *Config) validateUniverse() error {
	if len(c.Universe.Instruments) == 0 {
		return errors.New("universe.instruments must not be empty")
	}
	seen := make(map[string]bool)
	for _, s := range c.Universe.Instruments {
		if s.Ticker == "" || s.Price < model.MinPrice {
			return fmt.Errorf("universe instrument %q needs a ticker and a price >= %.2f", s.Ticker, model.MinPrice)
		}
		if seen[s.Ticker] {
			return fmt.Errorf("duplicate ticker %q", s.Ticker)
		}
		seen[s.Ticker] = true
	}
	ids := make(map[string]bool)
	for _, f := range c.Universe.Firms {
		if _, err := model.ParseStrategy(f.Strategy); err != nil {
			return fmt.Errorf("universe firm %q: %w", f.ID, err)
		}
		if ids[f.ID] {
			return fmt.Errorf("duplicate firm id %q", f.ID)
		}
		ids[f.ID] = true
	}
	return nil
}

// Engine maps the configuration onto engine tunables.
func (c *Config) Engine() engine.Config {
	ec := engine.DefaultConfig()
	ec.Seed = c.Simulation.Seed
	ec.Workers = c.Simulation.Workers
	ec.Profile = c.Simulation.Profile
	ec.News = c.News.Params
	ec.Overlay = c.Macro
	ec.Economy = c.Economy
	ec.Firm = c.Firms
	ec.Trading.StartingBalance = decimal.NewFromFloat(c.Trading.StartingBalance)
	ec.Trading.OptionMultiplier = c.Trading.OptionMultiplier
	ec.Trading.ShortTerm = c.Trading.ShortTerm
	ec.Trading.PremiumFactor = c.Trading.PremiumFactor
	ec.Trading.CacheTTL = c.Trading.CacheTTL
	ec.Bank.LoanRate = c.Bank.LoanRate
	ec.Bank.DepositRate = c.Bank.DepositRate
	ec.Bank.MaxTerm = c.Bank.MaxTerm
	ec.Bank.MaxLoan = decimal.NewFromFloat(c.Bank.MaxLoan)
	return ec
}

// LogOptions maps the logging section onto logger options.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// PublisherConfig maps the kafka section onto publisher settings.
func (c *Config) PublisherConfig() publisher.Config {
	return publisher.Config{Brokers: c.Kafka.Brokers, Topic: c.Kafka.Topic}
}
