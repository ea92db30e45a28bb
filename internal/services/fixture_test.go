package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/storage"
)

var (
	admin   = core.Actor{ID: "admin-1", Role: core.RoleAdmin}
	manager = core.Actor{ID: "manager-1", Role: core.RoleManager}
	founder = core.Actor{ID: "founder-1", Role: core.RoleEntrepreneur}
)

type fixture struct {
	repo      *storage.SQLiteRepository
	reports   *ReportingService
	ledger    *LedgerService
	approvals *ApprovalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := log.Discard()
	reports := NewReportingService(repo, time.Minute, logger)
	return &fixture{
		repo:      repo,
		reports:   reports,
		ledger:    NewLedgerService(repo, reports, true, logger),
		approvals: NewApprovalService(repo, reports, logger),
	}
}

// category creates a budget with a single category.
func (f *fixture) category(t *testing.T, total, allocated int64) core.Category {
	t.Helper()
	ctx := context.Background()
	b, err := f.ledger.CreateBudget(ctx, manager, NewBudget{
		Title:    "Seed round",
		Total:    core.Cents(total),
		Currency: "EUR",
	})
	require.NoError(t, err)
	c, err := f.ledger.AddCategory(ctx, manager, b.ID, NewCategory{
		Title:     "Marketing",
		Allocated: core.Cents(allocated),
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) expense(t *testing.T, categoryID, cents int64) core.Expense {
	t.Helper()
	e, err := f.ledger.CreateExpense(context.Background(), founder, categoryID, NewExpense{
		Title:  "Campaign",
		Amount: core.Cents(cents),
		Date:   core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) transition(id int64, target core.Status, actor core.Actor) (TransitionResult, error) {
	return f.approvals.Transition(context.Background(), TransitionRequest{
		ExpenseID: id,
		Target:    string(target),
		Actor:     actor,
	})
}

func (f *fixture) approve(t *testing.T, id int64) {
	t.Helper()
	_, err := f.transition(id, core.StatusApproved, admin)
	require.NoError(t, err)
}

func (f *fixture) queuedEvents(t *testing.T) int64 {
	t.Helper()
	stats, err := f.repo.EventStats(context.Background())
	require.NoError(t, err)
	return stats.Pending + stats.Processing + stats.Delivered + stats.Failed
}

func (f *fixture) status(t *testing.T, id int64) core.Status {
	t.Helper()
	e, err := f.repo.GetExpense(context.Background(), id)
	require.NoError(t, err)
	return e.Status
}
