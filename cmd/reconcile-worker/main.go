package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/perkspoint/perkspoint-backend/internal/cron"
	"github.com/perkspoint/perkspoint-backend/internal/reconciler"
	"github.com/perkspoint/perkspoint-backend/internal/transitions"
	"github.com/perkspoint/perkspoint-backend/pkg/config"
	"github.com/perkspoint/perkspoint-backend/pkg/db"
	"github.com/perkspoint/perkspoint-backend/pkg/instance"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
	"github.com/perkspoint/perkspoint-backend/pkg/metrics"
	"github.com/perkspoint/perkspoint-backend/pkg/migrate"
	"github.com/perkspoint/perkspoint-backend/pkg/redis"
)

const lockKeyFormat = "pp:reconcile-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "reconcile-worker"

	logg = logger.New(logger.Options{
		ServiceName: "reconcile-worker",
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
		Metrics:       metrics.NewTransitionMetrics(prometheus.DefaultRegisterer),
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

	stuckJob, err := cron.NewStuckEventsJob(cron.StuckEventsJobParams{
		Logger:       logg,
		Reconciler:   reconcilerService,
		AgeThreshold: cfg.Reconciler.AgeThreshold,
		DryRun:       cfg.Reconciler.DryRun,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stuck events job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 2*cfg.Reconciler.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(stuckJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Reconciler.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting reconcile worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconcile worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconcile worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
