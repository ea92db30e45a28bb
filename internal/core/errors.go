package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by the services wraps exactly one of these.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrBudgetExceeded     = errors.New("budget exceeded")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

var (
	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed", ErrInvalidStatus)
	ErrOverAllocated     = fmt.Errorf("%w: category allocations exceed budget total", ErrInvalidInput)
	ErrBelowApproved     = fmt.Errorf("%w: allocation below approved total", ErrInvalidInput)
)

// BudgetExceededError is returned when approving an expense would push the
// category's approved total past its allocation.
type BudgetExceededError struct {
	CategoryID    int64
	CategoryTitle string
	Allocated     Money
	Approved      Money // approved total excluding the expense being approved
	Requested     Money
}

// Remaining is the headroom left in the category before this approval.
func (e *BudgetExceededError) Remaining() Money {
	return e.Allocated.Sub(e.Approved)
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: category %q allocated %s, approved %s, requested %s, remaining %s",
		e.CategoryTitle, e.Allocated, e.Approved, e.Requested, e.Remaining())
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}

// IsDomainError reports whether err is a client-side error that must not be retried.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrBudgetExceeded)
}

// NotFoundf builds a NotFound error for the given entity and id.
func NotFoundf(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
