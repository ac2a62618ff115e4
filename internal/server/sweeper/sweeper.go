// Package sweeper periodically removes certificates whose refresh token has
// expired. Authentication never depends on it; it only bounds table size.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/dbx"
	"github.com/dmitrijs2005/cmsauth/internal/logging"
	"github.com/dmitrijs2005/cmsauth/internal/server/metrics"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/certificates"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a sweep every ten minutes.
const DefaultSchedule = "@every 10m"

type Sweeper struct {
	repo     certificates.Repository
	clock    clockx.Clock
	logger   logging.Logger
	metrics  *metrics.Metrics
	schedule string
	timeout  time.Duration

	cron *cron.Cron
}

func New(repo certificates.Repository, clock clockx.Clock, logger logging.Logger, mtr *metrics.Metrics, schedule string, timeout time.Duration) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{
		repo:     repo,
		clock:    clock,
		logger:   logger.With("module", "sweeper"),
		metrics:  mtr,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
	}
}

// RunOnce deletes every certificate that expired before now.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.repo.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "error", err)
		return 0, err
	}
	s.metrics.ObserveSwept(n)
	if n > 0 {
		s.logger.Info(ctx, "swept expired certificates", "count", n)
	}
	return n, nil
}

// Start schedules RunOnce and returns immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info(ctx, "sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule. The returned context is done once a running
// sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
