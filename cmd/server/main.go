package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "fleetbook-backend/internal/api/grpc"
	"fleetbook-backend/internal/api/grpc/interceptor"
	httpapi "fleetbook-backend/internal/api/http"
	"fleetbook-backend/internal/app"
	"fleetbook-backend/internal/config"
	"fleetbook-backend/internal/jobs"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/payment"
	"fleetbook-backend/internal/scheduler"
	"fleetbook-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Fleetbook Booking Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store, caches and services
	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
	)

	// Register services
	api.RegisterBookingServiceServer(s, api.NewBookingHandler(a.Availability, a.Pricing, a.Booking))
	api.RegisterLedgerServiceServer(s, api.NewLedgerHandler(a.Ledger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)
	healthSrv.SetServingStatus(api.BookingServiceName, healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(api.LedgerServiceName, healthpb.HealthCheckResponse_SERVING)

	// Register reflection service for grpcurl
	reflection.Register(s)

	// Set up HTTP server for REST and the payment webhook
	var webhooks *httpapi.WebhookHandler
	if cfg.Payment.StripeWebhookSecret != "" {
		webhooks = httpapi.NewWebhookHandler(payment.NewStripeWebhook(cfg.Payment.StripeWebhookSecret), a.Booking)
	} else {
		logger.Warn("Stripe webhook secret not configured, payment webhook disabled")
	}
	router := httpapi.NewRouter(
		httpapi.NewBookingHandler(a.Availability, a.Pricing, a.Booking, a.Ledger),
		webhooks,
		tokenManager,
		httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	)
	httpSrv := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	// The in-memory store lives in this process, so the sweep has to as well.
	var cronScheduler *scheduler.Scheduler
	if cfg.Storage.Driver == "memory" {
		cronScheduler, err = scheduler.NewScheduler(jobs.NewJobRunner(&jobs.Services{Booking: a.Booking, Ledger: a.Ledger}, cfg))
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
	}

	go func() {
		logger.Info("HTTP server listening", "address", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := s.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down servers...")
	healthSrv.Shutdown()
	if cronScheduler != nil {
		cronScheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.Stop()
	}
	logger.Info("Servers stopped. Goodbye!")
}
