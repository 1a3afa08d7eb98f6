// Package scheduler runs periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. It must return when ctx is canceled.
type Job func(ctx context.Context) error

// Scheduler manages cron tasks. A run still in progress when its next tick fires is skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a Scheduler whose jobs receive ctx.
func New(ctx context.Context) *Scheduler {
	l := slogLogger{slog.Default()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx: ctx,
	}
}

// Register adds job under a standard five-field spec or a descriptor such as "@every 5m".
func (s *Scheduler) Register(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	slog.Info("task registered", "task", name, "spec", spec)
	return nil
}

// RunNow executes job immediately on the caller's goroutine.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) run(name string, job Job) {
	if s.ctx.Err() != nil {
		return
	}
	slog.Info("running task", "task", name)
	if err := job(s.ctx); err != nil {
		slog.Error("task failed", "task", name, "error", err)
	}
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Info(msg string, keysAndValues ...any) {
	s.l.Debug("cron: "+msg, keysAndValues...)
}

func (s slogLogger) Error(err error, msg string, keysAndValues ...any) {
	s.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
