package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	"github.com/angelmondragon/bazaar-backend/api/routes"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/disputes"
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
	"github.com/angelmondragon/bazaar-backend/pkg/pubsub"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(registry)

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	inbox, err := notifications.NewInboxSink(notificationsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create inbox sink", err)
		os.Exit(1)
	}
	sinks := []notifications.Sink{inbox}

	var psClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		psClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pubSink, err := notifications.NewPubSubSink(psClient.NotificationPublisher(), cfg.PubSub.PublishTimeout)
		if err != nil {
			logg.Error(ctx, "failed to create pubsub sink", err)
			os.Exit(1)
		}
		sinks = append(sinks, pubSink)
		readiness["pubsub"] = psClient
	} else {
		logg.Warn(ctx, "gcp project id not set, notifications are inbox only")
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Sinks:   sinks,
		Workers: 2,
		Logger:  logg,
		Metrics: orderMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Start(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			logg.Error(closeCtx, "notification dispatcher did not drain", err)
		}
	}()

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	identity := users.NewRepository(dbClient.DB())
	ledger := inventory.NewLedger(dbClient.DB())
	negotiationRepo := negotiations.NewRepository(dbClient.DB())
	negotiationValidator, err := negotiations.NewValidator(negotiationRepo, time.Now)
	if err != nil {
		logg.Error(ctx, "failed to create negotiation validator", err)
		os.Exit(1)
	}
	policy := pricing.PolicyFromConfig(cfg.Commerce)

	cartRepo := cart.NewRepository(dbClient.DB())
	checker, err := cart.NewChecker(ledger, negotiationValidator, cfg.Commerce.LowStockThreshold)
	if err != nil {
		logg.Error(ctx, "failed to create cart checker", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:         cartRepo,
		Ledger:       ledger,
		Negotiations: negotiationValidator,
		Checker:      checker,
		Policy:       policy,
		MaxPerItem:   cfg.Commerce.MaxQuantityPerProduct,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:                 ordersRepo,
		Tx:                   dbClient,
		Cart:                 cartRepo,
		Checker:              checker,
		Ledger:               ledger,
		Negotiations:         negotiationRepo,
		NegotiationValidator: negotiationValidator,
		Identity:             identity,
		Policy:               policy,
		Notifier:             dispatcher,
		Metrics:              orderMetrics,
		Logger:               logg,
		OrderNumberPrefix:    cfg.Commerce.OrderNumberPrefix,
		NumberRetries:        cfg.Commerce.OrderNumberRetryAttempts,
		ReturnWindow:         cfg.Commerce.ReturnWindow(),
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	disputesService, err := disputes.NewService(disputes.ServiceParams{
		Repo:     disputes.NewRepository(dbClient.DB()),
		Orders:   ordersRepo,
		Tx:       dbClient,
		Identity: identity,
		Notifier: dispatcher,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create disputes service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Readiness:        readiness,
			IdempotencyStore: redisClient,
			Gatherer:         registry,
			Cart:             cartService,
			Orders:           ordersService,
			Disputes:         disputesService,
			Notifications:    notificationsService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logg.Info(shutdownCtx, "shutting down api server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}
