package scheduler

import (
	"testing"

	"fleetbook-backend/internal/config"
	"fleetbook-backend/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	t.Run("RegistersJobs", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduler.ExpireHolds = "0 * * * * *"
		cfg.Scheduler.LedgerSnapshot = "0 30 23 * * *"

		s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
		require.NoError(t, err)
		assert.Equal(t, 2, s.Entries())
	})

	t.Run("BadSpec", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduler.ExpireHolds = "every minute"
		cfg.Scheduler.LedgerSnapshot = "0 30 23 * * *"

		_, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
		assert.Error(t, err)
	})
}
