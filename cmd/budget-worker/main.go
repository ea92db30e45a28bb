package main

import (
	"context"

	"budgets/internal/cli"
	"budgets/internal/log"
	"budgets/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting budget-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	notifier, closeNotifier := cli.InitNotifier(context.Background(), logger, cfg)
	defer closeNotifier()

	relayConfig := services.DefaultRelayConfig()
	relayConfig.PollInterval = cfg.NotifyPollInterval
	relayConfig.BatchSize = cfg.NotifyBatchSize
	relayConfig.MaxRetries = cfg.NotifyMaxRetries
	relayConfig.CleanupAge = cfg.NotifyCleanupAge
	relay := services.NewNotificationRelay(repo, notifier, nil, relayConfig, logger)

	var exporter *services.ReportExporter
	if writer := cli.InitReportWriter(context.Background(), logger, cfg); writer != nil {
		// Writes happen in budgetd, so nothing here would invalidate cached summaries.
		reports := services.NewReportingService(repo, 0, logger)
		exporter = services.NewReportExporter(reports, writer, cfg.ExportInterval, logger)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := relay.Stop(ctx); err != nil {
			logger.Error("Notification relay shutdown error", log.FieldError, err)
		}
		if exporter != nil {
			if err := exporter.Stop(ctx); err != nil {
				logger.Error("Report exporter shutdown error", log.FieldError, err)
			}
		}
	})

	if stats, err := relay.Stats(ctx); err == nil {
		logger.Info("Notification queue state",
			"pending", stats.Pending,
			"processing", stats.Processing,
			"delivered", stats.Delivered,
			"failed", stats.Failed)
	}

	if err := relay.Start(ctx); err != nil {
		logger.Error("Failed to start notification relay", log.FieldError, err)
	}
	if exporter != nil {
		if err := exporter.Start(ctx); err != nil {
			logger.Error("Failed to start report exporter", log.FieldError, err)
		}
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
