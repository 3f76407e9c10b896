package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/engine"
	"github.com/TheFaucett/stock-game-sub000/internal/logging"
)

// Ticker is the job the scheduler drives.
type Ticker interface {
	AdvanceOneTick(ctx context.Context) (*engine.Report, error)
}

// Scheduler advances the simulation on a fixed interval. A tick that is
// still running when the next is due causes the next to be skipped.
type Scheduler struct {
	Cron   *cron.Cron
	Engine Ticker
	Ctx    context.Context
	log    *zap.Logger

	manual sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, eng Ticker, log *zap.Logger) *Scheduler {
	cl := logging.NewCronLogger(log)
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Engine: eng,
		Ctx:    ctx,
		log:    log,
	}
}

// Register schedules the tick job every interval.
func (s *Scheduler) Register(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	if _, err := s.Cron.AddFunc("@every "+interval.String(), s.tickTask); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running ticks, scheduled or
// manual, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.manual.Wait()
	s.log.Info("scheduler stopped")
}

// RunNow executes one tick immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.manual.Add(1)
	defer s.manual.Done()
	s.tickTask()
}

// RunNowAsync executes one tick in the background (RUN_ON_START). Stop
// waits for it.
func (s *Scheduler) RunNowAsync() {
	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		s.tickTask()
	}()
}

// tickTask skips the tick once the scheduler context is done. A tick that
// has started runs to completion regardless of later cancellation.
func (s *Scheduler) tickTask() {
	if s.Ctx.Err() != nil {
		return
	}
	if _, err := s.Engine.AdvanceOneTick(context.WithoutCancel(s.Ctx)); err != nil {
		s.log.Error("tick failed", zap.Error(err))
	}
}
