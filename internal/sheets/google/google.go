package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budgets/internal/core"
	ports "budgets/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Budgets"

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.ReportWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions builds a client from explicit API options (endpoint,
// HTTP client, credentials). Tests use it to point at a local server.
func NewWithOptions(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = defaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: name}, nil
}

// loadCredentials resolves service account JSON from inline config, a file,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteBudgetReport clears the report sheet and writes the summaries from A1.
func (c *Client) WriteBudgetReport(ctx context.Context, summaries []core.BudgetSummary, generatedAt time.Time) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:Z", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := ports.ReportRows(summaries, generatedAt)
	writeRange := fmt.Sprintf("%s!A1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", writeRange, err)
	}

	if resp.UpdatedRange != "" {
		return resp.UpdatedRange, nil
	}
	return fmt.Sprintf("%s!A1:I%d", c.sheetName, len(rows)), nil
}
