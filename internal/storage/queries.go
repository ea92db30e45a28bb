package storage

import (
	"context"
	"database/sql"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

const budgetColumns = `id, title, description, total_cents, currency, startup_call_id, created_by, archived_at, created_at, updated_at`

func scanBudget(s scanner) (Budget, error) {
	var i Budget
	err := s.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.TotalCents,
		&i.Currency,
		&i.StartupCallID,
		&i.CreatedBy,
		&i.ArchivedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createBudget = `-- name: CreateBudget :one
INSERT INTO budgets (title, description, total_cents, currency, startup_call_id, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + budgetColumns

type CreateBudgetParams struct {
	Title         string
	Description   string
	TotalCents    int64
	Currency      string
	StartupCallID string
	CreatedBy     string
	CreatedAt     int64
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget,
		arg.Title,
		arg.Description,
		arg.TotalCents,
		arg.Currency,
		arg.StartupCallID,
		arg.CreatedBy,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanBudget(row)
}

const getBudget = `-- name: GetBudget :one
SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id int64) (Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id))
}

const listActiveBudgets = `-- name: ListActiveBudgets :many
SELECT ` + budgetColumns + ` FROM budgets WHERE archived_at IS NULL ORDER BY id`

func (q *Queries) ListActiveBudgets(ctx context.Context) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listActiveBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		i, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const archiveBudget = `-- name: ArchiveBudget :execrows
UPDATE budgets SET archived_at = ?, updated_at = ? WHERE id = ? AND archived_at IS NULL`

func (q *Queries) ArchiveBudget(ctx context.Context, id, at int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, archiveBudget, at, at, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const categoryColumns = `id, budget_id, title, description, allocated_cents, currency, created_at, updated_at`

func scanCategory(s scanner) (BudgetCategory, error) {
	var i BudgetCategory
	err := s.Scan(
		&i.ID,
		&i.BudgetID,
		&i.Title,
		&i.Description,
		&i.AllocatedCents,
		&i.Currency,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO budget_categories (budget_id, title, description, allocated_cents, currency, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	BudgetID       int64
	Title          string
	Description    string
	AllocatedCents int64
	Currency       string
	CreatedAt      int64
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (BudgetCategory, error) {
	row := q.db.QueryRowContext(ctx, createCategory,
		arg.BudgetID,
		arg.Title,
		arg.Description,
		arg.AllocatedCents,
		arg.Currency,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanCategory(row)
}

const getCategory = `-- name: GetCategory :one
SELECT ` + categoryColumns + ` FROM budget_categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (BudgetCategory, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const listCategoriesByBudget = `-- name: ListCategoriesByBudget :many
SELECT ` + categoryColumns + ` FROM budget_categories WHERE budget_id = ? ORDER BY id`

func (q *Queries) ListCategoriesByBudget(ctx context.Context, budgetID int64) ([]BudgetCategory, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesByBudget, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetCategory
	for rows.Next() {
		i, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateCategoryAllocation = `-- name: UpdateCategoryAllocation :execrows
UPDATE budget_categories SET allocated_cents = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateCategoryAllocation(ctx context.Context, id, allocatedCents, at int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCategoryAllocation, allocatedCents, at, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumAllocatedByBudget = `-- name: SumAllocatedByBudget :one
SELECT COALESCE(SUM(allocated_cents), 0) FROM budget_categories WHERE budget_id = ? AND id != ?`

// SumAllocatedByBudget sums category allocations of a budget, skipping excludeCategoryID.
func (q *Queries) SumAllocatedByBudget(ctx context.Context, budgetID, excludeCategoryID int64) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumAllocatedByBudget, budgetID, excludeCategoryID).Scan(&total)
	return total, err
}

const (
	expenseReturning = `id, category_id, title, description, amount_cents, currency, incurred_on, status, created_by, created_at, updated_at`
	expenseColumns   = `e.id, e.category_id, e.title, e.description, e.amount_cents, e.currency, e.incurred_on, e.status, e.created_by, e.created_at, e.updated_at`
)

func scanExpense(s scanner) (Expense, error) {
	var i Expense
	err := s.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Title,
		&i.Description,
		&i.AmountCents,
		&i.Currency,
		&i.IncurredOn,
		&i.Status,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (category_id, title, description, amount_cents, currency, incurred_on, status, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseReturning

type CreateExpenseParams struct {
	CategoryID  int64
	Title       string
	Description string
	AmountCents int64
	Currency    string
	IncurredOn  string
	Status      string
	CreatedBy   string
	CreatedAt   int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.CategoryID,
		arg.Title,
		arg.Description,
		arg.AmountCents,
		arg.Currency,
		arg.IncurredOn,
		arg.Status,
		arg.CreatedBy,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanExpense(row)
}

const getExpense = `-- name: GetExpense :one
SELECT ` + expenseColumns + ` FROM expenses e WHERE e.id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpensesByCategory = `-- name: ListExpensesByCategory :many
SELECT ` + expenseColumns + ` FROM expenses e
WHERE e.category_id = ?
ORDER BY e.created_at DESC, e.id DESC`

func (q *Queries) ListExpensesByCategory(ctx context.Context, categoryID int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByCategory, categoryID)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const budgetExpenseFilter = `
FROM expenses e
JOIN budget_categories c ON c.id = e.category_id
WHERE c.budget_id = ?
  AND (? = '' OR e.status = ?)
  AND (? = '' OR e.incurred_on >= ?)
  AND (? = '' OR e.incurred_on <= ?)`

const listExpensesByBudget = `-- name: ListExpensesByBudget :many
SELECT ` + expenseColumns + budgetExpenseFilter + `
ORDER BY e.created_at DESC, e.id DESC
LIMIT ? OFFSET ?`

const countExpensesByBudget = `-- name: CountExpensesByBudget :one
SELECT COUNT(*)` + budgetExpenseFilter

// ListExpensesByBudgetParams holds the filters; empty strings disable a filter.
type ListExpensesByBudgetParams struct {
	BudgetID int64
	Status   string
	From     string
	To       string
	Limit    int64
	Offset   int64
}

func (arg ListExpensesByBudgetParams) filterArgs() []interface{} {
	return []interface{}{
		arg.BudgetID,
		arg.Status, arg.Status,
		arg.From, arg.From,
		arg.To, arg.To,
	}
}

func (q *Queries) ListExpensesByBudget(ctx context.Context, arg ListExpensesByBudgetParams) ([]Expense, error) {
	args := append(arg.filterArgs(), arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, listExpensesByBudget, args...)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

func (q *Queries) CountExpensesByBudget(ctx context.Context, arg ListExpensesByBudgetParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countExpensesByBudget, arg.filterArgs()...).Scan(&count)
	return count, err
}

const sumApprovedByCategory = `-- name: SumApprovedByCategory :one
SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
WHERE category_id = ? AND status = 'approved' AND id != ?`

func (q *Queries) SumApprovedByCategory(ctx context.Context, categoryID, excludeExpenseID int64) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumApprovedByCategory, categoryID, excludeExpenseID).Scan(&total)
	return total, err
}

const approvedTotalsByBudget = `-- name: ApprovedTotalsByBudget :many
SELECT c.id, COALESCE(SUM(e.amount_cents), 0)
FROM budget_categories c
LEFT JOIN expenses e ON e.category_id = c.id AND e.status = 'approved'
WHERE c.budget_id = ?
GROUP BY c.id
ORDER BY c.id`

func (q *Queries) ApprovedTotalsByBudget(ctx context.Context, budgetID int64) ([]CategoryApprovedTotal, error) {
	rows, err := q.db.QueryContext(ctx, approvedTotalsByBudget, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryApprovedTotal
	for rows.Next() {
		var i CategoryApprovedTotal
		if err := rows.Scan(&i.CategoryID, &i.ApprovedCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateExpenseStatus = `-- name: UpdateExpenseStatus :execrows
UPDATE expenses SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

type UpdateExpenseStatusParams struct {
	ID         int64
	FromStatus string
	ToStatus   string
	UpdatedAt  int64
}

// UpdateExpenseStatus only applies when the row is still in FromStatus.
func (q *Queries) UpdateExpenseStatus(ctx context.Context, arg UpdateExpenseStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpenseStatus, arg.ToStatus, arg.UpdatedAt, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createAuditEntry = `-- name: CreateAuditEntry :one
INSERT INTO expense_audit (expense_id, actor_id, from_status, to_status, comment, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateAuditEntry(ctx context.Context, arg ExpenseAudit) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createAuditEntry,
		arg.ExpenseID,
		arg.ActorID,
		arg.FromStatus,
		arg.ToStatus,
		arg.Comment,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const listAuditByExpense = `-- name: ListAuditByExpense :many
SELECT id, expense_id, actor_id, from_status, to_status, comment, created_at
FROM expense_audit WHERE expense_id = ? ORDER BY id`

func (q *Queries) ListAuditByExpense(ctx context.Context, expenseID int64) ([]ExpenseAudit, error) {
	rows, err := q.db.QueryContext(ctx, listAuditByExpense, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseAudit
	for rows.Next() {
		var i ExpenseAudit
		if err := rows.Scan(
			&i.ID,
			&i.ExpenseID,
			&i.ActorID,
			&i.FromStatus,
			&i.ToStatus,
			&i.Comment,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
