package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"classfees/internal/amqp"
	"classfees/internal/auth"
	"classfees/internal/cli"
	apphttp "classfees/internal/http"
	"classfees/internal/log"
	"classfees/internal/metrics"
	"classfees/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateServerConfig(logger)

	m := metrics.New()

	store := cli.InitStore(context.Background(), logger, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close document store", "error", err)
		}
	}()

	// Change events are optional; without AMQP the ledger mirror relies on
	// the worker's periodic resync.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	snapshots := services.NewSnapshots(store.Store, cfg.SnapshotTTL, logger, m)
	students := services.NewStudentService(store.Store, snapshots, publisher, cfg.RegistrationTimeout, logger, m)
	payments := services.NewPaymentService(store.Store, snapshots, publisher, logger, m)

	money, err := apphttp.NewMoney(cfg.Currency, cfg.Locale)
	if err != nil {
		logger.Error("Invalid currency settings", "error", err, "currency", cfg.Currency, "locale", cfg.Locale)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Students:           students,
		Payments:           payments,
		Snapshots:          snapshots,
		Auth:               auth.New(cfg.OperatorPassphraseHash, cfg.JWTSecret, cfg.TokenTTL),
		Store:              store.Store,
		Metrics:            m,
		Money:              money,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting classfees server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
