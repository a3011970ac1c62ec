package main

import (
	"context"
	"os"

	"bolsya/internal/amqp"
	"bolsya/internal/cli"
	"bolsya/internal/config"
	"bolsya/internal/log"
	gsheet "bolsya/internal/sheets/google"
	"bolsya/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting bolsya-worker", log.FieldOperation, log.OpStartup)

	// Migrations are idempotent, so the worker may open the database first.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, sheetsClient, amqpClient, logger)
	if err := exportWorker.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", log.FieldError, err.Error())
		os.Exit(1)
	}

	select {
	case sig := <-cli.ShutdownSignals():
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
	case <-exportWorker.Done():
		logger.Warn("Export worker exited")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()
	if err := exportWorker.Stop(stopCtx); err != nil {
		logger.Error("Export worker stop failed", log.FieldError, err.Error())
	}

	stats := exportWorker.Stats()
	logger.Info("Worker stopped",
		"exported", stats.Exported,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
}
