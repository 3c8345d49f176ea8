// Package scheduler runs the periodic request maintenance jobs: the daily
// overdue sweep and the attachment cleanup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"studentservices-api/internal/common/logger"

	"github.com/robfig/cron/v3"
)

// Jobs is implemented by requests.Service.
type Jobs interface {
	SweepOverdue(ctx context.Context) (int, error)
	RemindUnassigned(ctx context.Context) (int, error)
	CleanupAttachments(ctx context.Context) (int64, error)
}

type Config struct {
	OverdueSweep      string
	AttachmentCleanup string
	Location          *time.Location
}

type Scheduler struct {
	engine *cron.Cron
	jobs   Jobs
	cfg    Config
	logger logger.Logger
}

func New(jobs Jobs, cfg Config, log logger.Logger) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		engine: cron.New(cron.WithLocation(loc)),
		jobs:   jobs,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

// Start registers both jobs and starts the cron engine. An empty spec
// disables that job.
func (s *Scheduler) Start() error {
	if s.cfg.OverdueSweep != "" {
		if _, err := s.engine.AddFunc(s.cfg.OverdueSweep, func() { s.RunOverdueSweep(context.Background()) }); err != nil {
			return fmt.Errorf("schedule overdue sweep %q: %w", s.cfg.OverdueSweep, err)
		}
	}
	if s.cfg.AttachmentCleanup != "" {
		if _, err := s.engine.AddFunc(s.cfg.AttachmentCleanup, func() { s.RunAttachmentCleanup(context.Background()) }); err != nil {
			return fmt.Errorf("schedule attachment cleanup %q: %w", s.cfg.AttachmentCleanup, err)
		}
	}
	s.engine.Start()
	s.logger.Info("scheduler started", map[string]interface{}{
		"overdueSweep":      s.cfg.OverdueSweep,
		"attachmentCleanup": s.cfg.AttachmentCleanup,
	})
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	s.logger.Info("scheduler stopped", nil)
}

// RunOverdueSweep alerts on newly overdue requests, then reminds staff about
// pending high and urgent requests that still have no assignee.
func (s *Scheduler) RunOverdueSweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	alerted, err := s.jobs.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", map[string]interface{}{"error": err})
	} else {
		s.logger.Info("overdue sweep finished", map[string]interface{}{"alerted": alerted})
	}

	reminded, err := s.jobs.RemindUnassigned(ctx)
	if err != nil {
		s.logger.Error("unassigned reminder failed", map[string]interface{}{"error": err})
		return
	}
	if reminded > 0 {
		s.logger.Info("unassigned reminders sent", map[string]interface{}{"reminded": reminded})
	}
}

func (s *Scheduler) RunAttachmentCleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	n, err := s.jobs.CleanupAttachments(ctx)
	if err != nil {
		s.logger.Error("attachment cleanup failed", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("attachment cleanup finished", map[string]interface{}{"cleared": n})
}
