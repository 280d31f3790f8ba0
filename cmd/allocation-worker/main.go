package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Rajput612/mandihouse-backend/internal/allocation"
	"github.com/Rajput612/mandihouse-backend/internal/cron"
	"github.com/Rajput612/mandihouse-backend/internal/ledger"
	"github.com/Rajput612/mandihouse-backend/internal/notifications"
	"github.com/Rajput612/mandihouse-backend/internal/orders"
	"github.com/Rajput612/mandihouse-backend/pkg/config"
	"github.com/Rajput612/mandihouse-backend/pkg/db"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/metrics"
	"github.com/Rajput612/mandihouse-backend/pkg/migrate"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/redis"
)

const (
	lockKeyFormat     = "mh:allocation-worker:lock:%s"
	retentionInterval = 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "allocation-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "allocation-worker"

	logg = logger.New(logger.Options{
		ServiceName: "allocation-worker",
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

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), outboxSvc, logg, cfg.Ledger.ConflictRetries)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	allocationRepo := allocation.NewRepository(dbClient.DB())
	allocationMetrics := metrics.NewAllocationMetrics(prometheus.DefaultRegisterer)
	engine, err := allocation.NewEngine(allocationRepo, ledgerSvc, outboxSvc, logg, allocationMetrics, cfg.Allocation)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation engine", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		allocationRepo,
		engine,
		ledgerSvc,
		dbClient,
		outboxSvc,
		logg,
		cfg.Allocation.MaxReallocRounds,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	timeoutJob, err := cron.NewAllocationTimeoutJob(cron.AllocationTimeoutJobParams{
		Logger: logg,
		Reader: allocationRepo,
		Orders: ordersSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation timeout job", err)
		os.Exit(1)
	}

	notificationCleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		timeoutJob,
		cron.Throttled(notificationCleanup, retentionInterval),
		cron.Throttled(outboxRetention, retentionInterval),
	)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.TickInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting allocation worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "allocation worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "allocation worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
