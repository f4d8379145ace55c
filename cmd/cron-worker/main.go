package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/cron"
	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/negotiations"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/pricing"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

const lockNameFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	// Expiry cancellations notify buyers and sellers through the inbox.
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	inbox, err := notifications.NewInboxSink(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inbox sink", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Sinks:   []notifications.Sink{inbox},
		Logger:  logg,
		Metrics: orderMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Start(context.Background())
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			logg.Error(closeCtx, "notification dispatcher did not drain", err)
		}
	}()

	ledger := inventory.NewLedger(dbClient.DB())
	negotiationRepo := negotiations.NewRepository(dbClient.DB())
	negotiationValidator, err := negotiations.NewValidator(negotiationRepo, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create negotiation validator", err)
		os.Exit(1)
	}
	checker, err := cart.NewChecker(ledger, negotiationValidator, cfg.Commerce.LowStockThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart checker", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:                 orders.NewRepository(dbClient.DB()),
		Tx:                   dbClient,
		Cart:                 cart.NewRepository(dbClient.DB()),
		Checker:              checker,
		Ledger:               ledger,
		Negotiations:         negotiationRepo,
		NegotiationValidator: negotiationValidator,
		Identity:             users.NewRepository(dbClient.DB()),
		Policy:               pricing.PolicyFromConfig(cfg.Commerce),
		Notifier:             dispatcher,
		Metrics:              orderMetrics,
		Logger:               logg,
		OrderNumberPrefix:    cfg.Commerce.OrderNumberPrefix,
		NumberRetries:        cfg.Commerce.OrderNumberRetryAttempts,
		ReturnWindow:         cfg.Commerce.ReturnWindow(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewPendingExpiryJob(cron.PendingExpiryJobParams{
		Logger:    logg,
		Orders:    ordersService,
		OlderThan: cfg.Cron.PendingOrderTTL,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending expiry job", err)
		os.Exit(1)
	}
	returnJob, err := cron.NewReturnWindowJob(logg, ordersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create return window job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob, returnJob, cleanupJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}
