/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load YAML configuration with LEAVE_* env overrides
  3. Initialize zap logger
  4. Initialize SQLite store
  5. Wire ledger, evaluator, metrics, notifier
  6. Start scheduler and HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to the YAML configuration file (optional)
  -db      SQLite database path, overrides the config
           Use ":memory:" for an in-memory database
  -addr    Listen address, overrides the config

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Stop the batch scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with config file
  ./server -config=./leave.yaml

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - api/scheduler.go: Background batch jobs
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/metrics"
	"github.com/warp/leave-engine/notify"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "path to YAML configuration")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	// Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}

	// Logger
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// Engine
	notifier := notify.NewZapNotifier(logger.Named("notify"))
	ledger := leave.NewLedger(store, notifier, cfg.LeaveConfig())
	evaluator := leave.NewEvaluator(ledger, store, store, cfg.LeaveConfig())

	// Scheduler
	if cfg.Scheduler.Enabled {
		scheduler := api.NewBatchScheduler(ledger, evaluator, notifier, m,
			logger.Named("scheduler"), api.SchedulerOptions{
				SweepInterval:       cfg.Scheduler.SweepInterval,
				SixMonthInterval:    cfg.Scheduler.SixMonthInterval,
				AnnualInterval:      cfg.Scheduler.AnnualInterval,
				MaintenanceInterval: cfg.Scheduler.MaintenanceInterval,
				WarningLeadDays:     cfg.Scheduler.WarningLeadDays,
			})
		scheduler.Start()
		defer scheduler.Stop()
	}

	// HTTP server
	handler := api.NewHandler(store, ledger, evaluator, m, logger.Named("api"))
	router := api.NewRouter(handler, registry)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
