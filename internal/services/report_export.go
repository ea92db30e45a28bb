package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budgets/internal/log"
	"budgets/internal/sheets"
)

// ReportExporter periodically publishes every active budget's summary to a
// spreadsheet.
type ReportExporter struct {
	reports  *ReportingService
	writer   sheets.ReportWriter
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReportExporter(reports *ReportingService, writer sheets.ReportWriter, interval time.Duration, logger *log.Logger) *ReportExporter {
	return &ReportExporter{
		reports:  reports,
		writer:   writer,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentExport),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ExportOnce writes the current summaries and returns the written range.
func (e *ReportExporter) ExportOnce(ctx context.Context) (string, error) {
	summaries, err := e.reports.ActiveSummaries(ctx)
	if err != nil {
		return "", fmt.Errorf("load summaries: %w", err)
	}
	ref, err := e.writer.WriteBudgetReport(ctx, summaries, e.now())
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	e.logger.InfoContext(ctx, "Budget report exported",
		"budgets", len(summaries),
		"range", ref)
	return ref, nil
}

// Start exports immediately and then every interval. Returns an error if already running.
func (e *ReportExporter) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("report exporter is already running")
	}
	e.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	e.stopCh, e.doneCh = stopCh, doneCh
	e.mu.Unlock()

	go e.runLoop(ctx, stopCh, doneCh)
	e.logger.InfoContext(ctx, "Report exporter started", "interval", e.interval)
	return nil
}

func (e *ReportExporter) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.exportLogged(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.exportLogged(ctx)
		}
	}
}

func (e *ReportExporter) exportLogged(ctx context.Context) {
	if _, err := e.ExportOnce(ctx); err != nil {
		e.logger.ErrorContext(ctx, "Budget report export failed", log.FieldError, err)
	}
}

// Stop waits for an in-flight export to finish.
func (e *ReportExporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running || e.stopCh == nil {
		e.mu.Unlock()
		return nil
	}
	stopCh, doneCh := e.stopCh, e.doneCh
	e.stopCh = nil
	e.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
