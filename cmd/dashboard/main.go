package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/farm-platform/farm-dashboard/internal/api"
	"github.com/farm-platform/farm-dashboard/internal/cache"
	"github.com/farm-platform/farm-dashboard/internal/config"
	"github.com/farm-platform/farm-dashboard/internal/controller"
	"github.com/farm-platform/farm-dashboard/internal/gateway"
	"github.com/farm-platform/farm-dashboard/internal/notify"
	"github.com/farm-platform/farm-dashboard/pkg/kafka"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/resilience"
	"github.com/farm-platform/farm-dashboard/pkg/tracing"
)

func main() {
	configPath := flag.String("config", os.Getenv("DASHBOARD_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(cfg.ServiceName)
	logConfig.Level = logging.LogLevel(cfg.Logging.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Dashboard exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting farm dashboard", "gateway", cfg.Gateway.BaseURL, "pollInterval", cfg.Sync.PollInterval)

	tracingConfig := tracing.DefaultConfig(cfg.ServiceName)
	tracingConfig.OTLPEndpoint = cfg.Tracing.Endpoint
	tracingConfig.SampleRate = cfg.Tracing.SampleRate
	tracingConfig.Enabled = cfg.Tracing.Enabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		// Continue without tracing
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName))
	breakers := resilience.NewCircuitBreakerRegistry(logger.Logger)

	gatewayConfig := gateway.DefaultConfig(cfg.Gateway.BaseURL)
	gatewayConfig.Timeout = cfg.Gateway.Timeout
	gatewayConfig.RateLimit = cfg.Gateway.RateLimit
	gatewayConfig.RateBurst = cfg.Gateway.RateBurst
	gatewayConfig.Breakers = breakers
	gw := gateway.NewHTTPGateway(gatewayConfig, logger, m)

	inventory := cache.New(gw, &cache.Config{ReorderHorizonDays: cfg.Sync.ReorderHorizonDays}, logger, m)
	poller := controller.New(inventory, &controller.Config{PollInterval: cfg.Sync.PollInterval}, logger)
	defer poller.Stop()

	if cfg.Alerts.Enabled() {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig())
		defer kafkaProducer.Close()
		producer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)

		notifierConfig := notify.DefaultConfig()
		notifierConfig.Topic = cfg.Alerts.Topic
		notifierConfig.QueueSize = cfg.Alerts.QueueSize
		notifierConfig.HorizonDays = cfg.Sync.ReorderHorizonDays
		notifier := notify.New(producer, notifierConfig, logger, m)
		defer notifier.Attach(inventory)()

		if err := notifier.Start(ctx); err != nil {
			return err
		}
		defer notifier.Stop()
		logger.Info("Low-stock alerts enabled", "brokers", cfg.Alerts.Brokers, "topic", cfg.Alerts.Topic)
	}

	if cfg.Sync.DefaultTenant != "" {
		if err := poller.Start(ctx, cfg.Sync.DefaultTenant); err != nil {
			return fmt.Errorf("failed to start polling for default tenant: %w", err)
		}
	}

	router := api.NewRouter(&api.Dependencies{
		ServiceName: cfg.ServiceName,
		Cache:       inventory,
		Controller:  poller,
		Logger:      logger,
		Metrics:     m,
		Breakers:    breakers,
		PollContext: ctx,
	})

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("Server exited")
	return err
}
