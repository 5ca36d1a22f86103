package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/api"
	"github.com/labseries-server/internal/audit"
	"github.com/labseries-server/internal/cache"
	"github.com/labseries-server/internal/config"
	"github.com/labseries-server/internal/database"
	"github.com/labseries-server/internal/registry"
	"github.com/labseries-server/internal/repository"
	"github.com/labseries-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run migrations before opening the pool.
	migrator, err := database.NewMigrationRunner(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := migrator.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	if err := migrator.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close migration runner")
	}

	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	seriesCache, err := cache.NewSeriesCache(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create series cache")
	}
	defer seriesCache.Close()

	timeline, err := audit.NewStore(cfg.Audit)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create timeline store")
	}
	defer timeline.Close()

	reg := registry.NewDefault()
	store := repository.NewReportRepository(db.Pool, logger)

	normalizer := service.NewNormalizer(logger)
	extractor := service.NewExtractor(logger)
	aggregator := service.NewAggregator(reg, normalizer, extractor, store, timeline, seriesCache, logger)
	reconciler := service.NewReconciler(reg, store, seriesCache, logger)
	seriesBuilder := service.NewSeriesBuilder(reconciler, cfg.Reconcile, logger)
	insights := service.NewInsightsEngine(seriesBuilder, logger)

	server := api.NewServer(
		cfg.Server,
		cfg.Logging.Level,
		reg,
		aggregator,
		seriesBuilder,
		insights,
		store,
		timeline,
		db,
		logger,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting lab series server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
