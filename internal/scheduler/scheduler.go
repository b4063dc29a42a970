// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"line-chat-ai/internal/logging"
)

type Job func(ctx context.Context) error

type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	schedule string
	job      Job
	log      *slog.Logger
}

// New creates a scheduler for job. An empty schedule leaves it disabled.
func New(schedule string, job Job, log *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.Local)),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
		job:      job,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.schedule == "" || s.job == nil {
		s.log.Info("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce() })
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started", "schedule", s.schedule)
	return nil
}

// RunOnce executes the job synchronously.
func (s *Scheduler) RunOnce() {
	start := time.Now()
	if err := s.job(s.ctx); err != nil {
		s.log.Error("Scheduled job failed", logging.InnerError, err, logging.ExecutionTime, time.Since(start))
		return
	}
	s.log.Info("Scheduled job finished", logging.ExecutionTime, time.Since(start))
}

// Stop waits for a running job and cancels its context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
