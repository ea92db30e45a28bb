package services

import (
	"context"

	"budgets/internal/core"
)

// ApprovedSummer is the read the calculator needs. storage.Ledger satisfies
// it both on the pool and inside a transaction.
type ApprovedSummer interface {
	SumApproved(ctx context.Context, categoryID, excludeExpenseID int64) (core.Money, error)
}

// AllocationCalculator answers how much of a category's allocation is
// consumed by approved expenses.
type AllocationCalculator struct{}

// ApprovedTotal sums the approved expenses of a category, leaving out
// excludeExpenseID (0 excludes nothing).
func (AllocationCalculator) ApprovedTotal(ctx context.Context, src ApprovedSummer, categoryID, excludeExpenseID int64) (core.Money, error) {
	return src.SumApproved(ctx, categoryID, excludeExpenseID)
}

// CheckApproval returns a *core.BudgetExceededError when approving expense
// would push the category's approved total over its allocation. Reaching the
// allocation exactly is allowed.
func (c AllocationCalculator) CheckApproval(ctx context.Context, src ApprovedSummer, category core.Category, expense core.Expense) error {
	approved, err := c.ApprovedTotal(ctx, src, category.ID, expense.ID)
	if err != nil {
		return err
	}
	if approved.Add(expense.Amount).Cents > category.Allocated.Cents {
		return &core.BudgetExceededError{
			CategoryID:    category.ID,
			CategoryTitle: category.Title,
			Allocated:     category.Allocated,
			Approved:      approved,
			Requested:     expense.Amount,
		}
	}
	return nil
}

// Remaining is allocated minus approved; negative only if the allocation was
// lowered below the approved total outside this service.
func (AllocationCalculator) Remaining(category core.Category, approved core.Money) core.Money {
	return category.Allocated.Sub(approved)
}
