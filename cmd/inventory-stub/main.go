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

	"github.com/farm-platform/farm-dashboard/internal/config"
	"github.com/farm-platform/farm-dashboard/internal/stub"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
)

const serviceName = "inventory-stub"

func main() {
	configPath := flag.String("config", os.Getenv("DASHBOARD_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.Logging.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	store := stub.NewStore()
	if cfg.Stub.SeedDemo {
		stub.SeedDemo(store)
		logger.Info("Seeded demo tenants", "tenants", []string{stub.DemoTenantNorth, stub.DemoTenantRiver})
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	router := stub.NewRouter(store, logger, m)

	srv := &http.Server{
		Addr:        cfg.Stub.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Inventory stub listening", "addr", cfg.Stub.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down inventory stub...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
