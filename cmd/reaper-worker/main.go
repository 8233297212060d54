package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/delacruzbakes/bakeshop-backend/internal/cron"
	"github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/pkg/config"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
	"github.com/delacruzbakes/bakeshop-backend/pkg/metrics"
	"github.com/delacruzbakes/bakeshop-backend/pkg/migrate"
	"github.com/delacruzbakes/bakeshop-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reaper-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reaper-worker",
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("reaper"), cfg.Reaper.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create reaper lock", err)
		os.Exit(1)
	}

	reaperJob, err := cron.NewAbandonedCheckoutJob(cron.AbandonedCheckoutJobParams{
		Logger:        logg,
		DB:            dbClient,
		PendingReader: orders.NewRepository(dbClient.DB()),
		Timeout:       cfg.Reaper.AbandonmentTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create abandoned checkout job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reaperJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Reaper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reaper service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Reaper.Interval.String(),
	})
	logg.Info(ctx, "starting reaper worker")

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Reaper.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		_ = metricsServer.Close()
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reaper worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reaper worker shutting down gracefully")
}
