package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSimulation(cfgPath string) error {
	a, err := openApp(cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, a.engine, a.log.Named("scheduler"))
	if err := sched.Register(a.cfg.Simulation.TickInterval); err != nil {
		return err
	}
	sched.Start()

	if a.cfg.Simulation.RunOnStart {
		a.log.Info("run_on_start enabled, executing a tick now")
		sched.RunNowAsync()
	}

	a.log.Info("simulation running",
		zap.Duration("tick_interval", a.cfg.Simulation.TickInterval),
		zap.Int64("tick", a.engine.Tick()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received, stopping")
	sched.Stop()
	cancel()
	a.log.Info("simulation stopped", zap.Int64("tick", a.engine.Tick()))
	return nil
}
