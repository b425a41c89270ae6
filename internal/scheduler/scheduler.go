// Package scheduler runs the pipeline periodically on a cron spec,
// for deployments without an external job runner.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New schedules job on the given cron spec (standard 5-field syntax).
func New(spec string, job func(), logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Run starts the cron loop and blocks until ctx is cancelled, then
// waits for any in-flight job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started")
	s.cron.Start()

	<-ctx.Done()

	s.logger.Info("scheduler stopping, waiting for running jobs")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}
