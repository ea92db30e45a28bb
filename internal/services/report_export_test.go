package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgets/internal/log"
	"budgets/internal/sheets"
	"budgets/internal/sheets/memory"
)

func TestExportOnce(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, 100000, 35000)
	f.approve(t, f.expense(t, c.ID, 12500).ID)

	store := memory.New()
	exporter := NewReportExporter(f.reports, store, time.Hour, log.Discard())
	exporter.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }

	ref, err := exporter.ExportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	rows, ok := store.Latest()
	require.True(t, ok)
	require.Len(t, rows, 3)
	assert.Equal(t, sheets.ReportHeader, rows[0])
	assert.Equal(t, "Marketing", rows[1][4])
	assert.Equal(t, "350.00", rows[1][5])
	assert.Equal(t, "125.00", rows[1][6])
	assert.Equal(t, "225.00", rows[1][7])
	assert.Equal(t, "2025-04-01T12:00:00Z", rows[1][8])
	assert.Equal(t, "TOTAL", rows[2][4])
	assert.Equal(t, "875.00", rows[2][7])
}

func TestExportOnceWriterFailure(t *testing.T) {
	f := newFixture(t)
	f.category(t, 100000, 35000)

	store := memory.New()
	store.FailWith(errors.New("quota exceeded"))
	exporter := NewReportExporter(f.reports, store, time.Hour, log.Discard())

	_, err := exporter.ExportOnce(context.Background())
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, 0, store.Writes())
}

func TestExporterStartStop(t *testing.T) {
	f := newFixture(t)
	f.category(t, 100000, 35000)

	store := memory.New()
	exporter := NewReportExporter(f.reports, store, 10*time.Millisecond, log.Discard())
	ctx := context.Background()

	require.NoError(t, exporter.Start(ctx))
	assert.Error(t, exporter.Start(ctx))
	assert.Eventually(t, func() bool { return store.Writes() >= 2 }, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, exporter.Stop(stopCtx))
}

func TestExporterRestartsAfterContextCancelled(t *testing.T) {
	f := newFixture(t)
	store := memory.New()
	exporter := NewReportExporter(f.reports, store, time.Hour, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, exporter.Start(ctx))
	assert.Eventually(t, func() bool { return store.Writes() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool {
		err := exporter.Start(context.Background())
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, exporter.Stop(stopCtx))
}
