package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"budgets/internal/cli"
	apphttp "budgets/internal/http"
	"budgets/internal/log"
	"budgets/internal/middleware/ratelimit"
	"budgets/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting budgetd",
		"port", cfg.Port,
		"strict_allocation", cfg.StrictAllocation,
		"sqlite_db", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reports := services.NewReportingService(repo, cfg.ReportCacheTTL, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:    services.NewLedgerService(repo, reports, cfg.StrictAllocation, logger),
		Approvals: services.NewApprovalService(repo, reports, logger),
		Reports:   reports,
		DB:        repo,
	}, ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
