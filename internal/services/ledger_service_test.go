package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgets/internal/core"
	"budgets/internal/log"
)

func TestCreateBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.CreateBudget(ctx, admin, NewBudget{
		Title:         "  Pre-seed  ",
		Total:         core.Cents(500000),
		Currency:      "eur",
		StartupCallID: "call-42",
	})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, "Pre-seed", b.Title)
	assert.Equal(t, "EUR", b.Currency)
	assert.Equal(t, "admin-1", b.CreatedBy)
	assert.False(t, b.IsArchived())

	got, err := f.ledger.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Total, got.Total)
	assert.Equal(t, "call-42", got.StartupCallID)
}

func TestCreateBudgetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor core.Actor
		in    NewBudget
		want  error
	}{
		{"founder cannot create", founder, NewBudget{Title: "x", Total: core.Cents(1), Currency: "EUR"}, core.ErrUnauthorized},
		{"empty title", manager, NewBudget{Title: " ", Total: core.Cents(1), Currency: "EUR"}, core.ErrInvalidInput},
		{"negative total", manager, NewBudget{Title: "x", Total: core.Cents(-1), Currency: "EUR"}, core.ErrInvalidInput},
		{"bad currency", manager, NewBudget{Title: "x", Total: core.Cents(1), Currency: "EURO"}, core.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateBudget(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAddCategoryRejectsOverAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, 10000, 6000)

	_, err := f.ledger.AddCategory(ctx, manager, c.BudgetID, NewCategory{Title: "Travel", Allocated: core.Cents(4001)})
	assert.ErrorIs(t, err, core.ErrOverAllocated)

	travel, err := f.ledger.AddCategory(ctx, manager, c.BudgetID, NewCategory{Title: "Travel", Allocated: core.Cents(4000)})
	require.NoError(t, err)
	assert.Equal(t, "EUR", travel.Currency)
}

func TestAddCategoryLenientAllowsOverAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger = NewLedgerService(f.repo, f.reports, false, log.Discard())
	c := f.category(t, 10000, 6000)

	_, err := f.ledger.AddCategory(ctx, manager, c.BudgetID, NewCategory{Title: "Travel", Allocated: core.Cents(7000)})
	require.NoError(t, err)

	summary, err := f.reports.BudgetSummary(ctx, c.BudgetID)
	require.NoError(t, err)
	assert.Equal(t, int64(13000), summary.Allocated.Cents)
	assert.Equal(t, int64(-3000), summary.Unallocated.Cents)
}

func TestAddCategoryUnknownBudget(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.AddCategory(context.Background(), manager, 404, NewCategory{Title: "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestArchivedBudgetIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, 10000, 5000)

	archived, err := f.ledger.ArchiveBudget(ctx, manager, c.BudgetID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	_, err = f.ledger.AddCategory(ctx, manager, c.BudgetID, NewCategory{Title: "Travel"})
	assert.ErrorIs(t, err, core.ErrBudgetArchived)

	_, err = f.ledger.UpdateCategoryAllocation(ctx, manager, c.ID, core.Cents(100))
	assert.ErrorIs(t, err, core.ErrBudgetArchived)

	_, err = f.ledger.CreateExpense(ctx, founder, c.ID, NewExpense{Title: "x", Amount: core.Cents(1), Date: core.NewDate(2025, 1, 1)})
	assert.ErrorIs(t, err, core.ErrBudgetArchived)

	summaries, err := f.reports.ActiveSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestUpdateCategoryAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, 10000, 5000)
	f.approve(t, f.expense(t, c.ID, 3000).ID)

	_, err := f.ledger.UpdateCategoryAllocation(ctx, manager, c.ID, core.Cents(2999))
	assert.ErrorIs(t, err, core.ErrBelowApproved)

	_, err = f.ledger.UpdateCategoryAllocation(ctx, manager, c.ID, core.Cents(10001))
	assert.ErrorIs(t, err, core.ErrOverAllocated)

	_, err = f.ledger.UpdateCategoryAllocation(ctx, founder, c.ID, core.Cents(4000))
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	updated, err := f.ledger.UpdateCategoryAllocation(ctx, manager, c.ID, core.Cents(3000))
	require.NoError(t, err)
	assert.Equal(t, int64(3000), updated.Allocated.Cents)

	balance, err := f.reports.CategoryRemaining(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Remaining.Cents)
}

func TestCreateExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, 10000, 5000)

	e, err := f.ledger.CreateExpense(ctx, founder, c.ID, NewExpense{
		Title:  "Ads",
		Amount: core.Cents(1250),
		Date:   core.NewDate(2025, 2, 14),
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, e.Status)
	assert.Equal(t, "EUR", e.Currency)
	assert.Equal(t, "founder-1", e.CreatedBy)
	assert.Equal(t, "2025-02-14", e.Date.String())

	list, err := f.ledger.ListExpensesByCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, 10000, 5000)
	valid := NewExpense{Title: "Ads", Amount: core.Cents(100), Date: core.NewDate(2025, 1, 1)}

	_, err := f.ledger.CreateExpense(ctx, core.Actor{Role: core.RoleEntrepreneur}, c.ID, valid)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	usd := valid
	usd.Currency = "USD"
	_, err = f.ledger.CreateExpense(ctx, founder, c.ID, usd)
	assert.ErrorIs(t, err, core.ErrCurrencyMismatch)

	zero := valid
	zero.Amount = core.Cents(0)
	_, err = f.ledger.CreateExpense(ctx, founder, c.ID, zero)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	undated := valid
	undated.Date = core.Date{}
	_, err = f.ledger.CreateExpense(ctx, founder, c.ID, undated)
	assert.ErrorIs(t, err, core.ErrMissingDate)

	_, err = f.ledger.CreateExpense(ctx, founder, 9999, valid)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetExpenseIncludesAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, 10000, 5000)
	e := f.expense(t, c.ID, 100)

	got, err := f.ledger.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AuditTrail)

	f.approve(t, e.ID)
	got, err = f.ledger.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.AuditTrail, 1)
	assert.Equal(t, core.StatusApproved, got.AuditTrail[0].To)
}

func TestListExpensesByCategoryUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ListExpensesByCategory(context.Background(), 77)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerUsesInjectedClock(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	f.ledger.now = func() time.Time { return fixed }

	b, err := f.ledger.CreateBudget(context.Background(), admin, NewBudget{Title: "x", Total: core.Cents(1), Currency: "EUR"})
	require.NoError(t, err)
	assert.True(t, b.CreatedAt.Equal(fixed))
}
