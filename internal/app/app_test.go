package app

import (
	"context"
	"testing"
	"time"

	"fleetbook-backend/internal/config"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/notification"
	"fleetbook-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Driver = "memory"
	cfg.Email.Provider = "none"
	cfg.Booking.HoldPeriodMinutes = 15
	cfg.Booking.PastGraceMinutes = 30
	cfg.Booking.AvailabilityCacheTTLMs = 1000
	cfg.Booking.LockBackend = "local"
	cfg.Booking.RatePolicy = "most_specific"
	return cfg
}

func TestBuild_Memory(t *testing.T) {
	a, err := Build(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.Store{}, a.Store)
	require.NotNil(t, a.Availability)
	require.NotNil(t, a.Pricing)
	require.NotNil(t, a.Booking)
	require.NotNil(t, a.Ledger)

	pickup := time.Now().Add(24 * time.Hour)
	_, err = a.Availability.Resolve(context.Background(), 1, pickup, pickup.Add(48*time.Hour), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestBuild_UnknownRatePolicy(t *testing.T) {
	cfg := memoryConfig()
	cfg.Booking.RatePolicy = "cheapest"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuild_MissingSeed(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.SeedFile = "testdata/does-not-exist.yaml"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	assert.IsType(t, &notification.EmailNotifier{}, newNotifier(config.EmailConfig{Provider: "none"}))
	assert.IsType(t, &notification.EmailNotifier{}, newNotifier(config.EmailConfig{Provider: "sendgrid", SendgridAPIKey: "SG.key", From: "a@b.c"}))
}

func TestBuild_MemorySeed(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.SeedFile = "../repository/memory/testdata/seed.yaml"
	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	pickup := time.Now().Add(24 * time.Hour)
	av, err := a.Availability.Resolve(context.Background(), 1, pickup, pickup.Add(48*time.Hour), nil)
	require.NoError(t, err)
	assert.Positive(t, av.Capacity)
	assert.True(t, av.IsAvailable)
}
