package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/perkspoint/perkspoint-backend/api/routes"
	"github.com/perkspoint/perkspoint-backend/internal/ledger"
	"github.com/perkspoint/perkspoint-backend/internal/reconciler"
	"github.com/perkspoint/perkspoint-backend/internal/transitions"
	"github.com/perkspoint/perkspoint-backend/pkg/config"
	"github.com/perkspoint/perkspoint-backend/pkg/db"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
	"github.com/perkspoint/perkspoint-backend/pkg/metrics"
	"github.com/perkspoint/perkspoint-backend/pkg/migrate"
	"github.com/perkspoint/perkspoint-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	epsilon, err := decimal.NewFromString(cfg.Ledger.VerifyEpsilon)
	if err != nil {
		logg.Error(context.Background(), "invalid verify epsilon", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), epsilon)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	retryPolicy := transitions.RetryPolicy{
		MaxAttempts:  cfg.Transition.RetryMaxAttempts,
		InitialDelay: cfg.Transition.RetryInitialDelay,
		MaxDelay:     cfg.Transition.RetryMaxDelay,
		Multiplier:   cfg.Transition.RetryMultiplier,
	}
	transitionService, err := transitions.NewService(transitions.ServiceParams{
		DB:            dbClient,
		Repository:    transitions.NewRepository(dbClient.DB()),
		Logger:        logg,
		Metrics:       metrics.NewTransitionMetrics(registry),
		DefaultPolicy: &retryPolicy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transition service", err)
		os.Exit(1)
	}

	reconcilerService, err := reconciler.NewService(reconciler.ServiceParams{
		Repository:  reconciler.NewRepository(dbClient.DB()),
		Transitions: transitionService,
		Logger:      logg,
		BatchLimit:  cfg.Reconciler.BatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DBPinger:    dbClient,
			Redis:       redisClient,
			Ledger:      ledgerService,
			Transitions: transitionService,
			Reconciler:  reconcilerService,
			Gatherer:    registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
