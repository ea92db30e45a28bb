// Package cli provides common CLI initialization utilities shared by
// cmd/budgetd and cmd/budget-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgets/internal/amqp"
	"budgets/internal/config"
	"budgets/internal/log"
	"budgets/internal/services"
	"budgets/internal/sheets/google"
	"budgets/internal/storage"
)

const amqpConnectAttempts = 5

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Config is validated first, so an unknown
// level has already been rejected.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens and migrates the ledger database.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitNotifier returns the AMQP publisher when a broker is configured and a
// log-only notifier otherwise. The returned close function is never nil.
func InitNotifier(ctx context.Context, logger *log.Logger, cfg *config.Config) (services.Notifier, func()) {
	if !cfg.NotificationsEnabled() {
		logger.Info("AMQP_URL not set, notifications will only be logged")
		return services.NewLogNotifier(logger), func() {}
	}

	client, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpConnectAttempts)
	if err != nil {
		logger.Error("Failed to connect to AMQP broker", log.FieldError, err)
		os.Exit(1)
	}
	logger.WithComponent(log.ComponentAMQP).Info("Connected to AMQP broker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
}

// InitReportWriter returns the Google Sheets writer, or nil when export is disabled.
func InitReportWriter(ctx context.Context, logger *log.Logger, cfg *config.Config) *google.Client {
	if !cfg.ExportEnabled() {
		logger.Info("GOOGLE_SPREADSHEET_ID not set, report export disabled")
		return nil
	}

	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
