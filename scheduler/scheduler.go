// Package scheduler runs the periodic vote sweeps of a grant server.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper is the part of server.Server driven by the scheduler.
type Sweeper interface {
	PollVotes(ctx context.Context) (int, error)
	ExpireVotes(ctx context.Context, now time.Time) (int, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
	ctx     context.Context
	now     func() time.Time
}

// New creates a Scheduler. Jobs run with ctx and stop observing it
// once Stop returns.
func New(ctx context.Context, sweeper Sweeper, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		sweeper: sweeper,
		logger:  logger,
		ctx:     ctx,
		now:     time.Now,
	}
}

// Register adds the poll and expiry jobs. An empty spec skips the job.
func (s *Scheduler) Register(pollSpec, expireSpec string) error {
	if pollSpec != "" {
		if _, err := s.cron.AddFunc(pollSpec, s.poll); err != nil {
			return fmt.Errorf("register poll task: %w", err)
		}
	}
	if expireSpec != "" {
		if _, err := s.cron.AddFunc(expireSpec, s.expire); err != nil {
			return fmt.Errorf("register expire task: %w", err)
		}
	}
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.Jobs())
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes both sweeps immediately.
func (s *Scheduler) RunNow() {
	s.poll()
	s.expire()
}

func (s *Scheduler) poll() {
	n, err := s.sweeper.PollVotes(s.ctx)
	if err != nil {
		s.logger.Error("poll votes", "error", err)
	}
	if n > 0 {
		s.logger.Info("applied decided votes", "count", n)
	}
}

func (s *Scheduler) expire() {
	n, err := s.sweeper.ExpireVotes(s.ctx, s.now())
	if err != nil {
		s.logger.Error("expire votes", "error", err)
	}
	if n > 0 {
		s.logger.Info("expired votes", "count", n)
	}
}
