package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/storage"
)

// BudgetInvalidator drops cached reports of a budget. Implemented by ReportingService.
type BudgetInvalidator interface {
	InvalidateBudget(budgetID int64)
}

type NewBudget struct {
	Title         string
	Description   string
	Total         core.Money
	Currency      string
	StartupCallID string
}

type NewCategory struct {
	Title       string
	Description string
	Allocated   core.Money
}

type NewExpense struct {
	Title       string
	Description string
	Amount      core.Money
	Currency    string // optional; defaults to the category currency
	Date        core.Date
}

// LedgerService owns the budget hierarchy: budgets, their categories and
// the expenses filed against them.
type LedgerService struct {
	repo             *storage.SQLiteRepository
	reports          BudgetInvalidator
	strictAllocation bool
	logger           *log.Logger
	now              func() time.Time
}

func NewLedgerService(repo *storage.SQLiteRepository, reports BudgetInvalidator, strictAllocation bool, logger *log.Logger) *LedgerService {
	return &LedgerService{
		repo:             repo,
		reports:          reports,
		strictAllocation: strictAllocation,
		logger:           logger.WithComponent(log.ComponentLedger),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func requireManager(actor core.Actor) error {
	if !actor.Role.CanManageBudgets() {
		return fmt.Errorf("%w: role %q cannot manage budgets", core.ErrUnauthorized, actor.Role)
	}
	return nil
}

func (s *LedgerService) invalidate(budgetID int64) {
	if s.reports != nil {
		s.reports.InvalidateBudget(budgetID)
	}
}

// checkAllocation enforces sum(allocated) <= total. In lenient mode the
// overshoot is only logged.
func (s *LedgerService) checkAllocation(ctx context.Context, budget core.Budget, others, allocated core.Money) error {
	sum := others.Add(allocated)
	if sum.Cents <= budget.Total.Cents {
		return nil
	}
	if s.strictAllocation {
		return fmt.Errorf("%w: allocating %s brings budget %d to %s of %s",
			core.ErrOverAllocated, allocated, budget.ID, sum, budget.Total)
	}
	s.logger.WarnContext(ctx, "Budget over-allocated",
		log.FieldBudgetID, budget.ID,
		"allocated_cents", sum.Cents,
		"total_cents", budget.Total.Cents)
	return nil
}

func (s *LedgerService) CreateBudget(ctx context.Context, actor core.Actor, in NewBudget) (core.Budget, error) {
	if err := requireManager(actor); err != nil {
		return core.Budget{}, err
	}

	b := core.Budget{
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Total:         in.Total,
		Currency:      core.NormalizeCurrency(in.Currency),
		StartupCallID: strings.TrimSpace(in.StartupCallID),
		CreatedBy:     actor.ID,
		CreatedAt:     s.now(),
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	created, err := withStorageRetry(ctx, s.logger, "create budget", func() (core.Budget, error) {
		return s.repo.CreateBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.InfoContext(ctx, "Budget created",
		log.FieldBudgetID, created.ID,
		log.FieldActorID, actor.ID,
		"total_cents", created.Total.Cents)
	return created, nil
}

func (s *LedgerService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return withStorageRetry(ctx, s.logger, "get budget", func() (core.Budget, error) {
		return s.repo.GetBudget(ctx, id)
	})
}

func (s *LedgerService) ArchiveBudget(ctx context.Context, actor core.Actor, id int64) (core.Budget, error) {
	if err := requireManager(actor); err != nil {
		return core.Budget{}, err
	}

	archived, err := withStorageRetry(ctx, s.logger, "archive budget", func() (core.Budget, error) {
		var out core.Budget
		err := s.repo.InTx(ctx, func(l storage.Ledger) error {
			if _, err := l.GetBudget(ctx, id); err != nil {
				return err
			}
			if _, err := l.ArchiveBudget(ctx, id, s.now()); err != nil {
				return err
			}
			var err error
			out, err = l.GetBudget(ctx, id)
			return err
		})
		return out, err
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.invalidate(id)
	s.logger.InfoContext(ctx, "Budget archived", log.FieldBudgetID, id, log.FieldActorID, actor.ID)
	return archived, nil
}

func (s *LedgerService) AddCategory(ctx context.Context, actor core.Actor, budgetID int64, in NewCategory) (core.Category, error) {
	if err := requireManager(actor); err != nil {
		return core.Category{}, err
	}

	c := core.Category{
		BudgetID:    budgetID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Allocated:   in.Allocated,
		CreatedAt:   s.now(),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := withStorageRetry(ctx, s.logger, "add category", func() (core.Category, error) {
		var out core.Category
		err := s.repo.InTx(ctx, func(l storage.Ledger) error {
			budget, err := l.GetBudget(ctx, budgetID)
			if err != nil {
				return err
			}
			if budget.IsArchived() {
				return core.ErrBudgetArchived
			}
			others, err := l.SumAllocated(ctx, budgetID, 0)
			if err != nil {
				return err
			}
			if err := s.checkAllocation(ctx, budget, others, c.Allocated); err != nil {
				return err
			}
			c.Currency = budget.Currency
			out, err = l.CreateCategory(ctx, c)
			return err
		})
		return out, err
	})
	if err != nil {
		return core.Category{}, err
	}

	s.invalidate(budgetID)
	s.logger.InfoContext(ctx, "Category added",
		log.FieldBudgetID, budgetID,
		log.FieldCategoryID, created.ID,
		"allocated_cents", created.Allocated.Cents)
	return created, nil
}

func (s *LedgerService) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return withStorageRetry(ctx, s.logger, "get category", func() (core.Category, error) {
		return s.repo.GetCategory(ctx, id)
	})
}

// UpdateCategoryAllocation changes a category's allocation. The new value may
// not drop below what is already approved in the category.
func (s *LedgerService) UpdateCategoryAllocation(ctx context.Context, actor core.Actor, categoryID int64, allocated core.Money) (core.Category, error) {
	if err := requireManager(actor); err != nil {
		return core.Category{}, err
	}
	if allocated.IsNegative() {
		return core.Category{}, core.ErrNegativeAmount
	}

	updated, err := withStorageRetry(ctx, s.logger, "update allocation", func() (core.Category, error) {
		var out core.Category
		err := s.repo.InTx(ctx, func(l storage.Ledger) error {
			category, err := l.GetCategory(ctx, categoryID)
			if err != nil {
				return err
			}
			budget, err := l.GetBudget(ctx, category.BudgetID)
			if err != nil {
				return err
			}
			if budget.IsArchived() {
				return core.ErrBudgetArchived
			}
			approved, err := l.SumApproved(ctx, categoryID, 0)
			if err != nil {
				return err
			}
			if allocated.Cents < approved.Cents {
				return fmt.Errorf("%w: category %d has %s approved, requested allocation %s",
					core.ErrBelowApproved, categoryID, approved, allocated)
			}
			others, err := l.SumAllocated(ctx, category.BudgetID, categoryID)
			if err != nil {
				return err
			}
			if err := s.checkAllocation(ctx, budget, others, allocated); err != nil {
				return err
			}
			if err := l.UpdateCategoryAllocation(ctx, categoryID, allocated, s.now()); err != nil {
				return err
			}
			out, err = l.GetCategory(ctx, categoryID)
			return err
		})
		return out, err
	})
	if err != nil {
		return core.Category{}, err
	}

	s.invalidate(updated.BudgetID)
	s.logger.InfoContext(ctx, "Category allocation updated",
		log.FieldCategoryID, categoryID,
		"allocated_cents", allocated.Cents,
		log.FieldActorID, actor.ID)
	return updated, nil
}

// CreateExpense files a new expense in pending state.
func (s *LedgerService) CreateExpense(ctx context.Context, actor core.Actor, categoryID int64, in NewExpense) (core.Expense, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return core.Expense{}, fmt.Errorf("%w: expense submitter is not identified", core.ErrUnauthorized)
	}

	e := core.Expense{
		CategoryID:  categoryID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    core.NormalizeCurrency(in.Currency),
		Date:        in.Date,
		Status:      core.StatusPending,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now(),
	}

	created, err := withStorageRetry(ctx, s.logger, "create expense", func() (core.Expense, error) {
		var out core.Expense
		err := s.repo.InTx(ctx, func(l storage.Ledger) error {
			category, err := l.GetCategory(ctx, categoryID)
			if err != nil {
				return err
			}
			budget, err := l.GetBudget(ctx, category.BudgetID)
			if err != nil {
				return err
			}
			if budget.IsArchived() {
				return core.ErrBudgetArchived
			}
			candidate := e
			if candidate.Currency == "" {
				candidate.Currency = category.Currency
			}
			if err := candidate.Validate(); err != nil {
				return err
			}
			if candidate.Currency != category.Currency {
				return fmt.Errorf("%w: %s vs %s", core.ErrCurrencyMismatch, candidate.Currency, category.Currency)
			}
			out, err = l.CreateExpense(ctx, candidate)
			return err
		})
		return out, err
	})
	if err != nil {
		return core.Expense{}, err
	}

	s.logger.InfoContext(ctx, "Expense submitted",
		log.FieldExpenseID, created.ID,
		log.FieldCategoryID, categoryID,
		log.FieldAmountCents, created.Amount.Cents,
		log.FieldActorID, actor.ID)
	return created, nil
}

// GetExpense returns the expense together with its audit trail.
func (s *LedgerService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return withStorageRetry(ctx, s.logger, "get expense", func() (core.Expense, error) {
		e, err := s.repo.GetExpense(ctx, id)
		if err != nil {
			return core.Expense{}, err
		}
		e.AuditTrail, err = s.repo.ListAudit(ctx, id)
		return e, err
	})
}

func (s *LedgerService) ListExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	return withStorageRetry(ctx, s.logger, "list category expenses", func() ([]core.Expense, error) {
		if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
			return nil, err
		}
		return s.repo.ListExpensesByCategory(ctx, categoryID)
	})
}
