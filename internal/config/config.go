package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"budgets/internal/log"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Database
	SQLiteDBPath string

	// AMQP notifications; empty URL logs notifications instead
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export; empty spreadsheet ID disables it
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExportInterval           time.Duration

	// Notification relay
	NotifyBatchSize    int
	NotifyPollInterval time.Duration
	NotifyMaxRetries   int
	NotifyCleanupAge   time.Duration

	// Ledger rules
	StrictAllocation   bool
	ReportCacheTTL     time.Duration
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/budgets.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgets"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_notifications"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Budgets"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ExportInterval:           getEnvDuration("EXPORT_INTERVAL", 15*time.Minute),

		NotifyBatchSize:    getEnvInt("NOTIFY_BATCH_SIZE", 20),
		NotifyPollInterval: getEnvDuration("NOTIFY_POLL_INTERVAL", 5*time.Second),
		NotifyMaxRetries:   getEnvInt("NOTIFY_MAX_RETRIES", 5),
		NotifyCleanupAge:   getEnvDuration("NOTIFY_CLEANUP_AGE", 24*time.Hour),

		StrictAllocation:   getEnvBool("STRICT_ALLOCATION", true),
		ReportCacheTTL:     getEnvDuration("REPORT_CACHE_TTL", time.Minute),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// NotificationsEnabled reports whether notifications go to the broker.
func (c *Config) NotificationsEnabled() bool {
	return c.AMQPURL != ""
}

// ExportEnabled reports whether budget reports are exported to Google Sheets.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets export if enabled
	if c.ExportEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for report export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.ExportInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 minute", c.ExportInterval))
		}
	}

	// Validate relay configuration
	if c.NotifyBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid notify batch size %d: must be at least 1", c.NotifyBatchSize))
	} else if c.NotifyBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid notify batch size %d: must be at most 1000", c.NotifyBatchSize))
	}

	if c.NotifyPollInterval < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid notify poll interval %v: must be at least 100ms", c.NotifyPollInterval))
	} else if c.NotifyPollInterval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid notify poll interval %v: must be at most 1 hour", c.NotifyPollInterval))
	}

	if c.NotifyMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid notify max retries %d: must be at least 1", c.NotifyMaxRetries))
	}

	if c.NotifyCleanupAge < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid notify cleanup age %v: must be at least 1 minute", c.NotifyCleanupAge))
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: cannot be negative", c.ReportCacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
