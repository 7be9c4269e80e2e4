package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/readerpos/api"
	"github.com/angelmondragon/readerpos/api/routes"
	"github.com/angelmondragon/readerpos/internal/location"
	"github.com/angelmondragon/readerpos/internal/payments"
	"github.com/angelmondragon/readerpos/internal/receipts"
	"github.com/angelmondragon/readerpos/internal/session"
	"github.com/angelmondragon/readerpos/pkg/config"
	"github.com/angelmondragon/readerpos/pkg/db"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/metrics"
	"github.com/angelmondragon/readerpos/pkg/migrate"
	"github.com/angelmondragon/readerpos/pkg/money"
	"github.com/angelmondragon/readerpos/pkg/redis"
	"github.com/angelmondragon/readerpos/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "pos"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pos",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "pos server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "pos server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers := []func() error{dbClient.Close}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		redisClient *redis.Client
		cache       receipts.Cache
		guard       payments.ChargeGuard
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
		cache = redisClient
		guard = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; charge guard, receipt cache, and rate limits disabled")
	}

	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		return err
	}

	fallback, err := money.ParseCurrency(cfg.Session.FallbackCurrency)
	if err != nil {
		return err
	}
	currency := location.ResolveCurrency(ctx, squareClient, squareClient.LocationID(), fallback, logg)

	receiptService, err := receipts.NewService(receipts.NewRepository(dbClient.DB()), cache, logg)
	if err != nil {
		return err
	}

	charger, err := payments.NewCharger(payments.Params{
		Square:          squareClient,
		Receipts:        receiptService,
		Guard:           guard,
		Logger:          logg,
		Timeout:         cfg.Square.PaymentTimeout,
		GuardTTL:        cfg.Session.ChargeGuardTTL,
		DefaultSourceID: cfg.Square.DefaultSourceID,
	})
	if err != nil {
		return err
	}

	sess, err := session.New(ctx, session.Params{
		ID:       cfg.Session.ID,
		Currency: currency,
		Charger:  charger,
		Logger:   logg,
		Metrics:  metrics.NewOrderEntryMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"session_id":            sess.ID(),
		"currency":              currency.String(),
		"square_env":            squareClient.Environment(),
		"square_application_id": squareClient.ApplicationID(),
		"square_location_id":    squareClient.LocationID(),
	}), "register.ready")

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		Session:        sess,
		SessionID:      sess.ID(),
		ReceiptService: receiptService,
		DB:             dbClient,
		RedisClient:    redisClient,
		Gatherer:       prometheus.DefaultGatherer,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"session_id": sess.ID(),
		"currency":   currency.String(),
	})
	logg.Info(logCtx, "starting pos server")

	if err := api.NewServer(addr, handler, logg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
