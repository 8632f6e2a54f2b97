package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/Tender/internal/api"
	"github.com/MikeSquared-Agency/Tender/internal/config"
	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/procurement"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

const statsInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var db store.Store
	if cfg.Database.URL == "" {
		db = store.NewMemoryStore()
		logger.Warn("no database configured, using in-memory store")
	} else {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Error("failed to migrate database", "error", err)
				os.Exit(1)
			}
		}
		db = pg
		logger.Info("connected to database")
	}
	defer db.Close()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, hermes.Options{URL: cfg.Hermes.URL, Durable: cfg.Hermes.Durable}, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// Engine
	engine := evaluation.NewEngine(evaluation.Options{
		Taxonomy:      evaluation.DefaultTaxonomy().Extend(cfg.Evaluation.ExtraCriteria...),
		Tolerance:     cfg.Evaluation.WeightTolerance,
		ParetoEnabled: cfg.Evaluation.ParetoEnabled,
	}, logger)

	weights := make(store.CriteriaWeightSet, len(cfg.Evaluation.DefaultWeights))
	for c, w := range cfg.Evaluation.DefaultWeights {
		weights[store.Criterion(c)] = w
	}
	if err := engine.ValidateWeights(weights); err != nil {
		logger.Error("invalid default weights", "error", err)
		os.Exit(1)
	}

	svc := procurement.New(db, hermesClient, engine, weights, logger)
	if err := svc.SetupSubscriptions(); err != nil {
		logger.Warn("failed to subscribe to compliance reports", "error", err)
	}
	svc.Start(ctx, statsInterval)
	defer svc.Stop()

	// API server
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(svc, cfg.Server.AdminToken, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
