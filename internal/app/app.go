// Package app assembles the store, caches and services from configuration.
// Both the API server and the cron runner start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleetbook-backend/internal/cache"
	"fleetbook-backend/internal/config"
	"fleetbook-backend/internal/lock"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/notification"
	"fleetbook-backend/internal/repository"
	"fleetbook-backend/internal/repository/memory"
	"fleetbook-backend/internal/repository/postgres"
	"fleetbook-backend/internal/service"
	"fleetbook-backend/internal/utils"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config *config.Config
	Store  repository.Store

	Availability service.AvailabilityService
	Pricing      service.PricingService
	Booking      service.BookingService
	Ledger       service.LedgerService

	closers []func() error
}

// Build connects to the configured backends and wires every service.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("Redis connection established", "addr", cfg.Redis.Addr)
	}

	var availabilityCache cache.AvailabilityCache
	if rdb != nil {
		availabilityCache = cache.NewRedis(rdb, cfg.Booking.AvailabilityCacheTTL())
	} else {
		availabilityCache = cache.NewMemory(cfg.Booking.AvailabilityCacheTTL())
	}

	var locker lock.Locker
	switch cfg.Booking.LockBackend {
	case "redis":
		locker = lock.NewRedis(rdb, cfg.Booking.LockTTL())
	default:
		locker = lock.NewLocal()
	}

	selector, err := utils.RateSelectorByName(cfg.Booking.RatePolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := service.Options{
		HoldPeriod:   cfg.Booking.HoldPeriod(),
		PastGrace:    cfg.Booking.PastGrace(),
		StoreTimeout: cfg.Booking.StoreTimeout(),
	}

	discounts := service.NewDiscountService(store.Discounts(), opts)
	a.Availability = service.NewAvailabilityService(store, availabilityCache, opts)
	a.Pricing = service.NewPricingService(store, discounts, selector, opts)
	a.Booking = service.NewBookingService(store, a.Pricing, locker, availabilityCache, newNotifier(cfg.Email), opts)
	a.Ledger = service.NewLedgerService(store.Ledger(), opts)

	logger.Info("Services initialized",
		"storage", cfg.Storage.Driver,
		"lock_backend", cfg.Booking.LockBackend,
		"rate_policy", cfg.Booking.RatePolicy,
		"email_provider", cfg.Email.Provider,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	cfg := a.Config
	if cfg.Storage.Driver == "memory" {
		if cfg.Storage.SeedFile == "" {
			logger.Warn("Using empty in-memory store")
			return memory.NewStore(), nil
		}
		logger.Info("Using in-memory store", "seed_file", cfg.Storage.SeedFile)
		store, err := memory.LoadSeed(cfg.Storage.SeedFile)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxOpenConns / 2)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Storage.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		logger.Info("Database schema applied")
	}

	return postgres.NewStore(db, postgres.Options{
		MaxRetries:   cfg.Booking.MaxRetries,
		RetryBackoff: cfg.Booking.RetryBackoff(),
	}), nil
}

func newNotifier(cfg config.EmailConfig) service.Notifier {
	switch cfg.Provider {
	case "smtp":
		logger.Info("SMTP configuration", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return notification.NewEmailNotifier(notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From))
	case "sendgrid":
		return notification.NewEmailNotifier(notification.NewSendgridSender(cfg.SendgridAPIKey, "Fleetbook", cfg.From))
	}
	return notification.NewEmailNotifier(notification.Noop{})
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
