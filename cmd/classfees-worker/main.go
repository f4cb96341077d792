package main

import (
	"context"
	"errors"
	"os"
	"time"

	"classfees/internal/amqp"
	"classfees/internal/cli"
	"classfees/internal/log"
	"classfees/internal/metrics"
	"classfees/internal/sheets"
	gsheet "classfees/internal/sheets/google"
	"classfees/internal/sheets/memory"
	"classfees/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting classfees-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	store := cli.InitStore(context.Background(), logger, cfg)
	defer store.Close()

	var ledger sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
			gsheet.Credentials{JSON: cfg.GoogleServiceAccountJSON, File: cfg.GoogleServiceAccountFile},
			logger.WithComponent(log.ComponentSheets))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		ledger = memory.New()
		logger.Info("Google Sheets disabled - mirroring into memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledgerSync := worker.NewLedgerSync(store.Store, ledger, logger, metrics.New())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Run resyncs first, catching up on anything missed while the worker was down.
	go ledgerSync.Run(ctx, cfg.SyncInterval)

	go func() {
		if err := amqpClient.Consume(ctx, ledgerSync.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
