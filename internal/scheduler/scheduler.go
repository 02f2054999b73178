package scheduler

import (
	"fmt"
	"time"

	"fleetbook-backend/internal/jobs"
	"fleetbook-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails
// when a configured cron spec does not parse.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Frequent: release capacity held by abandoned checkouts
	if _, err := s.cron.AddFunc(cfg.ExpireHolds, s.jobs.ExpirePendingHolds); err != nil {
		return fmt.Errorf("failed to register ExpirePendingHolds job: %w", err)
	}

	// Nightly
	if _, err := s.cron.AddFunc(cfg.LedgerSnapshot, s.jobs.LedgerSnapshot); err != nil {
		return fmt.Errorf("failed to register LedgerSnapshot job: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "expire_holds", cfg.ExpireHolds, "ledger_snapshot", cfg.LedgerSnapshot)
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
