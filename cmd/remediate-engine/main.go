package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-remediate/internal/analyzers"
	"github.com/miradorstack/mirador-remediate/internal/api"
	"github.com/miradorstack/mirador-remediate/internal/collab"
	"github.com/miradorstack/mirador-remediate/internal/config"
	"github.com/miradorstack/mirador-remediate/internal/deploy"
	"github.com/miradorstack/mirador-remediate/internal/engine"
	"github.com/miradorstack/mirador-remediate/internal/health"
	"github.com/miradorstack/mirador-remediate/internal/metrics"
	"github.com/miradorstack/mirador-remediate/internal/patterns"
	"github.com/miradorstack/mirador-remediate/internal/service"
	"github.com/miradorstack/mirador-remediate/internal/store"
	"github.com/miradorstack/mirador-remediate/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-remediate", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	history := patterns.NewHistory(logger, cfg.Health.RollbackWindow)
	registry := analyzers.NewDefaultRegistry(logger, cfg.Analyzers.Timeout, history)
	aggregator := engine.NewAggregator(logger, cfg.Analyzers.MinSignals, cfg.Analyzers.ConfidenceCeiling)

	policy, err := engine.NewPolicy(cfg.Policy.RulesPath, logger, cfg.Policy.MinAutoConfidence, cfg.Policy.MaxAutoSecurity)
	if err != nil {
		logger.Error("failed to load decision rules", slog.Any("error", err))
		os.Exit(1)
	}

	executor := collab.NewExecutorClient(
		cfg.Collab.ExecutorBaseURL,
		cfg.Collab.ExecutePath,
		cfg.Collab.RollbackPath,
		cfg.Collab.ValidatePath,
		cfg.Collab.Timeout,
	)

	var notifier collab.Notifier = collab.NewLogNotifier(logger)
	if cfg.Collab.NotifyURL != "" {
		notifier = collab.NewHTTPNotifier(cfg.Collab.NotifyURL, cfg.Collab.Timeout)
	}

	conflictPolicy := deploy.ConflictReject
	if cfg.Policy.ConflictSupersedes {
		conflictPolicy = deploy.ConflictSupersede
	}
	supervisor := deploy.NewSupervisor(executor, notifier, logger, deploy.Options{
		Timeout:            cfg.Deploy.Timeout,
		MonitorWindow:      cfg.Deploy.MonitorWindow,
		MonitorInterval:    cfg.Deploy.MonitorInterval,
		ErrorRateThreshold: cfg.Deploy.ErrorRateThreshold,
		LatencyThreshold:   cfg.Deploy.LatencyThreshold,
		CanaryHold:         cfg.Deploy.CanaryHold,
		RollingBatches:     cfg.Deploy.RollingBatches,
		ConflictPolicy:     conflictPolicy,
	})
	defer supervisor.Close()

	monitor := health.NewMonitor(notifier, logger, health.Options{
		MTTRThreshold:        cfg.Health.MTTRThreshold,
		RollbackWindow:       cfg.Health.RollbackWindow,
		RollbackThreshold:    cfg.Health.RollbackThreshold,
		FailureRateThreshold: cfg.Health.FailureRateThreshold,
		FailureSampleSize:    cfg.Health.FailureSampleSize,
		HysteresisMargin:     cfg.Health.HysteresisMargin,
		AutoClear:            cfg.Health.AutoClear,
	})

	svc := service.NewRemediationService(logger, service.Config{
		Registry:     registry,
		Aggregator:   aggregator,
		Policy:       policy,
		Supervisor:   supervisor,
		Monitor:      monitor,
		History:      history,
		Store:        store.New(),
		Audit:        store.NewAuditStream(4096),
		AutoDeploy:   cfg.Policy.AutoDeploy,
		BatchTimeout: cfg.Analyzers.BatchTimeout,
	})

	server := api.NewServer(cfg.Server, api.NewHandlers(svc, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}
}
