package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hora/billing-engine/internal/config"
	"github.com/hora/billing-engine/internal/handler"
	"github.com/hora/billing-engine/internal/infra/postgresql"
	"github.com/hora/billing-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/hora/billing-engine/internal/infra/redis"
	"github.com/hora/billing-engine/internal/notify"
	"github.com/hora/billing-engine/internal/observability"
	"github.com/hora/billing-engine/internal/repository"
	"github.com/hora/billing-engine/internal/service"
	"github.com/hora/billing-engine/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	paymentRepo := repository.NewGormPaymentRepo(db)
	settingsRepo := repository.NewGormSettingsRepo(db, cfg.DefaultWindowDays)

	catalog, err := service.NewSubscriptionCatalog(subscriptionRepo, settingsRepo, logger)
	if err != nil {
		logger.Fatal("catalog initialization failed", zap.Error(err))
	}

	ledger, err := service.NewPaymentLedger(subscriptionRepo, paymentRepo, logger)
	if err != nil {
		logger.Fatal("ledger initialization failed", zap.Error(err))
	}
	ledger.SetMetrics(metrics)

	notifier, err := notify.NewPushGatewayNotifier(cfg.PushGatewayURL)
	if err != nil {
		logger.Fatal("notifier initialization failed", zap.Error(err))
	}

	sweep, err := service.NewNotificationSweep(
		subscriptionRepo,
		notifier,
		rateLimiter,
		cfg.ReminderHorizonDays,
		logger,
	)
	if err != nil {
		logger.Fatal("sweep initialization failed", zap.Error(err))
	}
	sweep.SetMetrics(metrics)

	scheduler, err := service.NewSweepScheduler(sweep, cfg.SweepCron, cfg.SweepMaxRetries, logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", metrics.FiberHandler())
	if err := handler.RegisterSubscriptionRoutes(app, catalog, ledger); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("billing-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		return scheduler.Start(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("billing-engine terminated", zap.Error(err))
	}

	logger.Info("billing-engine stopped")
}
