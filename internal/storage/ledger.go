package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"budgets/internal/core"
)

// Ledger exposes the ledger tables in domain types. It is bound either to
// the connection pool or to a single transaction (see SQLiteRepository.InTx).
type Ledger struct {
	q *Queries
}

// NewLedger wraps any DBTX.
func NewLedger(db DBTX) Ledger {
	return Ledger{q: New(db)}
}

// PendingEvent is an outbox row waiting for delivery.
type PendingEvent struct {
	ID       int64
	Attempts int
	Event    core.StatusChangedEvent
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFoundf(entity, id)
	}
	return fmt.Errorf("get %s %d: %w", entity, id, err)
}

func toBudget(b Budget) core.Budget {
	out := core.Budget{
		ID:            b.ID,
		Title:         b.Title,
		Description:   b.Description,
		Total:         core.Cents(b.TotalCents),
		Currency:      b.Currency,
		StartupCallID: b.StartupCallID,
		CreatedBy:     b.CreatedBy,
		CreatedAt:     fromMillis(b.CreatedAt),
		UpdatedAt:     fromMillis(b.UpdatedAt),
	}
	if b.ArchivedAt.Valid {
		at := fromMillis(b.ArchivedAt.Int64)
		out.ArchivedAt = &at
	}
	return out
}

func toCategory(c BudgetCategory) core.Category {
	return core.Category{
		ID:          c.ID,
		BudgetID:    c.BudgetID,
		Title:       c.Title,
		Description: c.Description,
		Allocated:   core.Cents(c.AllocatedCents),
		Currency:    c.Currency,
		CreatedAt:   fromMillis(c.CreatedAt),
		UpdatedAt:   fromMillis(c.UpdatedAt),
	}
}

func toExpense(e Expense) (core.Expense, error) {
	date, err := core.ParseDate(e.IncurredOn)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: stored date: %w", e.ID, err)
	}
	status, err := core.ParseStatus(e.Status)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: stored status: %w", e.ID, err)
	}
	return core.Expense{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Title:       e.Title,
		Description: e.Description,
		Amount:      core.Cents(e.AmountCents),
		Currency:    e.Currency,
		Date:        date,
		Status:      status,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   fromMillis(e.CreatedAt),
		UpdatedAt:   fromMillis(e.UpdatedAt),
	}, nil
}

func toExpenses(rows []Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		e, err := toExpense(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toAudit(a ExpenseAudit) core.AuditEntry {
	return core.AuditEntry{
		ID:        a.ID,
		ExpenseID: a.ExpenseID,
		ActorID:   a.ActorID,
		From:      core.Status(a.FromStatus),
		To:        core.Status(a.ToStatus),
		Comment:   a.Comment,
		CreatedAt: fromMillis(a.CreatedAt),
	}
}

// Budgets

func (l Ledger) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := l.q.CreateBudget(ctx, CreateBudgetParams{
		Title:         b.Title,
		Description:   b.Description,
		TotalCents:    b.Total.Cents,
		Currency:      b.Currency,
		StartupCallID: b.StartupCallID,
		CreatedBy:     b.CreatedBy,
		CreatedAt:     millis(b.CreatedAt),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return toBudget(row), nil
}

func (l Ledger) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row, err := l.q.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return toBudget(row), nil
}

func (l Ledger) ListActiveBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := l.q.ListActiveBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, r := range rows {
		out = append(out, toBudget(r))
	}
	return out, nil
}

// ArchiveBudget reports whether the budget was archived by this call.
func (l Ledger) ArchiveBudget(ctx context.Context, id int64, at time.Time) (bool, error) {
	n, err := l.q.ArchiveBudget(ctx, id, millis(at))
	if err != nil {
		return false, fmt.Errorf("archive budget %d: %w", id, err)
	}
	return n > 0, nil
}

// Categories

func (l Ledger) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := l.q.CreateCategory(ctx, CreateCategoryParams{
		BudgetID:       c.BudgetID,
		Title:          c.Title,
		Description:    c.Description,
		AllocatedCents: c.Allocated.Cents,
		Currency:       c.Currency,
		CreatedAt:      millis(c.CreatedAt),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return toCategory(row), nil
}

func (l Ledger) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row, err := l.q.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound(err, "category", id)
	}
	return toCategory(row), nil
}

func (l Ledger) ListCategories(ctx context.Context, budgetID int64) ([]core.Category, error) {
	rows, err := l.q.ListCategoriesByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list categories of budget %d: %w", budgetID, err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, toCategory(r))
	}
	return out, nil
}

func (l Ledger) UpdateCategoryAllocation(ctx context.Context, id int64, allocated core.Money, at time.Time) error {
	n, err := l.q.UpdateCategoryAllocation(ctx, id, allocated.Cents, millis(at))
	if err != nil {
		return fmt.Errorf("update allocation of category %d: %w", id, err)
	}
	if n == 0 {
		return core.NotFoundf("category", id)
	}
	return nil
}

// SumAllocated sums the allocations of a budget's categories except excludeCategoryID (0 for none).
func (l Ledger) SumAllocated(ctx context.Context, budgetID, excludeCategoryID int64) (core.Money, error) {
	total, err := l.q.SumAllocatedByBudget(ctx, budgetID, excludeCategoryID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum allocations of budget %d: %w", budgetID, err)
	}
	return core.Cents(total), nil
}

// Expenses

func (l Ledger) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row, err := l.q.CreateExpense(ctx, CreateExpenseParams{
		CategoryID:  e.CategoryID,
		Title:       e.Title,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Currency:    e.Currency,
		IncurredOn:  e.Date.String(),
		Status:      string(e.Status),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   millis(e.CreatedAt),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return toExpense(row)
}

// GetExpense returns the expense without its audit trail.
func (l Ledger) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := l.q.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(err, "expense", id)
	}
	return toExpense(row)
}

func (l Ledger) ListExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	rows, err := l.q.ListExpensesByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list expenses of category %d: %w", categoryID, err)
	}
	return toExpenses(rows)
}

// ListExpensesByBudget expects a normalized filter.
func (l Ledger) ListExpensesByBudget(ctx context.Context, budgetID int64, f core.ExpenseFilter) (core.ExpensePage, error) {
	arg := ListExpensesByBudgetParams{
		BudgetID: budgetID,
		Status:   string(f.Status),
		From:     f.From.String(),
		To:       f.To.String(),
		Limit:    int64(f.Limit),
		Offset:   int64(f.Offset),
	}
	total, err := l.q.CountExpensesByBudget(ctx, arg)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("count expenses of budget %d: %w", budgetID, err)
	}
	rows, err := l.q.ListExpensesByBudget(ctx, arg)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses of budget %d: %w", budgetID, err)
	}
	items, err := toExpenses(rows)
	if err != nil {
		return core.ExpensePage{}, err
	}
	return core.ExpensePage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// SumApproved totals approved expenses of a category, skipping excludeExpenseID (0 for none).
func (l Ledger) SumApproved(ctx context.Context, categoryID, excludeExpenseID int64) (core.Money, error) {
	total, err := l.q.SumApprovedByCategory(ctx, categoryID, excludeExpenseID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum approved expenses of category %d: %w", categoryID, err)
	}
	return core.Cents(total), nil
}

// ApprovedTotals maps every category of the budget to its approved total.
func (l Ledger) ApprovedTotals(ctx context.Context, budgetID int64) (map[int64]core.Money, error) {
	rows, err := l.q.ApprovedTotalsByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("approved totals of budget %d: %w", budgetID, err)
	}
	out := make(map[int64]core.Money, len(rows))
	for _, r := range rows {
		out[r.CategoryID] = core.Cents(r.ApprovedCents)
	}
	return out, nil
}

// UpdateExpenseStatus moves an expense from one status to another. It fails
// with ErrInvalidTransition when the stored status is no longer from.
func (l Ledger) UpdateExpenseStatus(ctx context.Context, id int64, from, to core.Status, at time.Time) error {
	n, err := l.q.UpdateExpenseStatus(ctx, UpdateExpenseStatusParams{
		ID:         id,
		FromStatus: string(from),
		ToStatus:   string(to),
		UpdatedAt:  millis(at),
	})
	if err != nil {
		return fmt.Errorf("update status of expense %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d is no longer %s: %w", id, from, core.ErrInvalidTransition)
	}
	return nil
}

// Audit trail

func (l Ledger) AppendAudit(ctx context.Context, a core.AuditEntry) (core.AuditEntry, error) {
	id, err := l.q.CreateAuditEntry(ctx, ExpenseAudit{
		ExpenseID:  a.ExpenseID,
		ActorID:    a.ActorID,
		FromStatus: string(a.From),
		ToStatus:   string(a.To),
		Comment:    a.Comment,
		CreatedAt:  millis(a.CreatedAt),
	})
	if err != nil {
		return core.AuditEntry{}, fmt.Errorf("append audit for expense %d: %w", a.ExpenseID, err)
	}
	a.ID = id
	return a, nil
}

func (l Ledger) ListAudit(ctx context.Context, expenseID int64) ([]core.AuditEntry, error) {
	rows, err := l.q.ListAuditByExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("list audit of expense %d: %w", expenseID, err)
	}
	out := make([]core.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, toAudit(r))
	}
	return out, nil
}

// Notification outbox

func (l Ledger) EnqueueEvent(ctx context.Context, ev core.StatusChangedEvent) error {
	_, err := l.q.EnqueueNotification(ctx, EnqueueNotificationParams{
		EventID:        ev.EventID,
		ExpenseID:      ev.ExpenseID,
		PreviousStatus: string(ev.PreviousStatus),
		NewStatus:      string(ev.NewStatus),
		Comment:        ev.Comment,
		ActorID:        ev.ActorID,
		CreatedAt:      millis(ev.OccurredAt),
	})
	if err != nil {
		return fmt.Errorf("enqueue event %s: %w", ev.EventID, err)
	}
	return nil
}

func (l Ledger) PendingEvents(ctx context.Context, now time.Time, limit int) ([]PendingEvent, error) {
	rows, err := l.q.DequeueNotificationBatch(ctx, millis(now), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("dequeue notification batch: %w", err)
	}
	out := make([]PendingEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, PendingEvent{
			ID:       r.ID,
			Attempts: int(r.Attempts),
			Event: core.StatusChangedEvent{
				EventID:        r.EventID,
				ExpenseID:      r.ExpenseID,
				PreviousStatus: core.Status(r.PreviousStatus),
				NewStatus:      core.Status(r.NewStatus),
				Comment:        r.Comment,
				ActorID:        r.ActorID,
				OccurredAt:     fromMillis(r.CreatedAt),
			},
		})
	}
	return out, nil
}

// ClaimEvent marks a pending event as processing. It returns false when the
// event was already claimed.
func (l Ledger) ClaimEvent(ctx context.Context, id int64, now time.Time) (bool, error) {
	n, err := l.q.MarkNotificationProcessing(ctx, id, millis(now))
	if err != nil {
		return false, fmt.Errorf("claim event %d: %w", id, err)
	}
	return n > 0, nil
}

func (l Ledger) MarkEventDelivered(ctx context.Context, id int64, now time.Time) error {
	if err := l.q.MarkNotificationDelivered(ctx, id, millis(now)); err != nil {
		return fmt.Errorf("mark event %d delivered: %w", id, err)
	}
	return nil
}

func (l Ledger) RescheduleEvent(ctx context.Context, id int64, cause error, next, now time.Time) error {
	if err := l.q.RescheduleNotification(ctx, id, cause.Error(), millis(next), millis(now)); err != nil {
		return fmt.Errorf("reschedule event %d: %w", id, err)
	}
	return nil
}

func (l Ledger) MarkEventFailed(ctx context.Context, id int64, cause error, now time.Time) error {
	if err := l.q.MarkNotificationFailed(ctx, id, cause.Error(), millis(now)); err != nil {
		return fmt.Errorf("mark event %d failed: %w", id, err)
	}
	return nil
}

func (l Ledger) CleanupDeliveredEvents(ctx context.Context, before time.Time) (int64, error) {
	n, err := l.q.CleanupDeliveredNotifications(ctx, millis(before))
	if err != nil {
		return 0, fmt.Errorf("cleanup delivered events: %w", err)
	}
	return n, nil
}

func (l Ledger) ResetStaleEvents(ctx context.Context, staleBefore, now time.Time) (int64, error) {
	n, err := l.q.ResetStaleNotifications(ctx, millis(now), millis(staleBefore))
	if err != nil {
		return 0, fmt.Errorf("reset stale events: %w", err)
	}
	return n, nil
}

func (l Ledger) RetryFailedEvents(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.q.RetryFailedNotifications(ctx, millis(now))
	if err != nil {
		return 0, fmt.Errorf("retry failed events: %w", err)
	}
	return n, nil
}

func (l Ledger) EventStats(ctx context.Context) (NotificationQueueStats, error) {
	stats, err := l.q.GetNotificationQueueStats(ctx)
	if err != nil {
		return NotificationQueueStats{}, fmt.Errorf("notification queue stats: %w", err)
	}
	return stats, nil
}
