package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/config"
	"github.com/TheFaucett/stock-game-sub000/internal/engine"
	"github.com/TheFaucett/stock-game-sub000/internal/feed"
	"github.com/TheFaucett/stock-game-sub000/internal/logging"
	"github.com/TheFaucett/stock-game-sub000/internal/publisher"
	"github.com/TheFaucett/stock-game-sub000/internal/recorder"
	"github.com/TheFaucett/stock-game-sub000/internal/store"
)

// app is a fully wired, bootstrapped engine.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *engine.Engine
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func openApp(cfgPath string) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, rec, err := openStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	pub := publisher.New(cfg.PublisherConfig(), log.Named("publisher"))

	eng, err := engine.New(cfg.Engine(), st, newsSource(cfg), rec, pub, log.Named("engine"))
	if err != nil {
		st.Close()
		rec.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	if cfg.Simulation.ProfilesFile != "" {
		n, err := eng.LoadProfiles(cfg.Simulation.ProfilesFile)
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		log.Info("custom profiles loaded", zap.Int("count", n))
	}
	if err := eng.Bootstrap(context.Background(), cfg.Universe); err != nil {
		eng.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &app{cfg: cfg, log: log, engine: eng}, nil
}

func openStorage(cfg *config.Config, log *zap.Logger) (store.Store, recorder.Recorder, error) {
	if cfg.Database.InMemory {
		log.Info("using in-memory store")
		return store.NewMemory(), recorder.NewNoopRecorder(), nil
	}
	for _, p := range []string{cfg.Database.SQLitePath, cfg.Database.HistoryPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.OpenSQLite(cfg.Database.SQLitePath, log.Named("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.HistoryPath, log.Named("recorder"))
	if err != nil {
		log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return st, recorder.NewNoopRecorder(), nil
	}
	return st, rec, nil
}

func newsSource(cfg *config.Config) feed.Source {
	switch cfg.News.Source {
	case config.SourceRemote:
		return feed.NewRemote(cfg.News.BaseURL, cfg.News.Path, cfg.News.Timeout)
	case config.SourceNone:
		return nil
	}
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var tickers, sectors []string
	seen := make(map[string]bool)
	for _, s := range cfg.Universe.Instruments {
		tickers = append(tickers, s.Ticker)
		if s.Sector != "" && !seen[s.Sector] {
			seen[s.Sector] = true
			sectors = append(sectors, s.Sector)
		}
	}
	return feed.NewSynthetic(rand.New(rand.NewSource(seed^0x5eed)), feed.NewLexiconScorer(), tickers, sectors, cfg.News.Rate)
}

func (a *app) Close() {
	if err := a.engine.Close(); err != nil {
		a.log.Warn("close engine", zap.Error(err))
	}
	_ = a.log.Sync()
}
