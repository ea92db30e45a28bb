package core

import "fmt"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// ExpenseFilter narrows a budget-wide expense listing. Zero values mean "no filter".
type ExpenseFilter struct {
	Status Status
	From   Date // inclusive
	To     Date // inclusive
	Limit  int
	Offset int
}

// Normalize applies paging defaults and validates the filter.
func (f ExpenseFilter) Normalize() (ExpenseFilter, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return f, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return f, fmt.Errorf("%w: date range end before start", ErrInvalidInput)
	}
	if f.Offset < 0 {
		return f, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultPageLimit
	case f.Limit > MaxPageLimit:
		f.Limit = MaxPageLimit
	}
	return f, nil
}

// ExpensePage is one page of a filtered listing, newest first.
type ExpensePage struct {
	Items  []Expense
	Total  int64
	Limit  int
	Offset int
}

// CategoryBalance is a category with its approved total and remaining headroom.
type CategoryBalance struct {
	Category  Category
	Approved  Money
	Remaining Money
}

// BudgetSummary aggregates a budget over its categories.
type BudgetSummary struct {
	Budget      Budget
	Allocated   Money // sum of category allocations
	Spent       Money // sum of approved expenses across categories
	Remaining   Money // Total - Spent
	Unallocated Money // Total - Allocated; negative when over-allocated
	Categories  []CategoryBalance
}
