package services

import (
	"context"
	"fmt"
	"time"

	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/storage"
)

// TransitionRequest asks to move an expense to Target on behalf of Actor.
type TransitionRequest struct {
	ExpenseID int64
	Target    string
	Actor     core.Actor
	Comment   string
}

// TransitionResult is the expense after the request. Changed is false when
// the expense was already in the target status.
type TransitionResult struct {
	Expense core.Expense
	Changed bool
	EventID string
}

// ApprovalService applies the expense status state machine.
type ApprovalService struct {
	repo       *storage.SQLiteRepository
	calculator AllocationCalculator
	reports    BudgetInvalidator
	logger     *log.Logger
	audit      *log.StructuredLogger
	now        func() time.Time
}

func NewApprovalService(repo *storage.SQLiteRepository, reports BudgetInvalidator, logger *log.Logger) *ApprovalService {
	l := logger.WithComponent(log.ComponentApproval)
	return &ApprovalService{
		repo:    repo,
		reports: reports,
		logger:  l,
		audit:   log.NewStructuredLogger(l),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Transition validates and applies a status change. The allocation read,
// status write, audit entry and outbox event share one transaction, so an
// approval either lands with its event or not at all.
func (s *ApprovalService) Transition(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	if req.Actor.Role != core.RoleAdmin {
		return TransitionResult{}, fmt.Errorf("%w: only admins can change expense status", core.ErrUnauthorized)
	}
	if req.Actor.ID == "" {
		return TransitionResult{}, core.ErrMissingActor
	}
	target, err := core.ParseStatus(req.Target)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := core.ValidateComment(req.Comment); err != nil {
		return TransitionResult{}, err
	}

	var (
		budgetID int64
		from     core.Status
	)
	result, err := withStorageRetry(ctx, s.logger, "transition expense", func() (TransitionResult, error) {
		var res TransitionResult
		err := s.repo.InTx(ctx, func(l storage.Ledger) error {
			expense, err := l.GetExpense(ctx, req.ExpenseID)
			if err != nil {
				return err
			}
			category, err := l.GetCategory(ctx, expense.CategoryID)
			if err != nil {
				return err
			}
			budgetID = category.BudgetID
			from = expense.Status

			if from != target {
				if !from.CanTransitionTo(target) {
					return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, from, target)
				}
				if target == core.StatusApproved {
					if err := s.calculator.CheckApproval(ctx, l, category, expense); err != nil {
						return err
					}
				}

				now := s.now()
				if err := l.UpdateExpenseStatus(ctx, expense.ID, from, target, now); err != nil {
					return err
				}
				if _, err := l.AppendAudit(ctx, core.AuditEntry{
					ExpenseID: expense.ID,
					ActorID:   req.Actor.ID,
					From:      from,
					To:        target,
					Comment:   req.Comment,
					CreatedAt: now,
				}); err != nil {
					return err
				}
				ev := core.NewStatusChangedEvent(expense.ID, from, target, req.Actor.ID, req.Comment, now)
				if err := l.EnqueueEvent(ctx, ev); err != nil {
					return err
				}

				res.Changed = true
				res.EventID = ev.EventID
				expense.Status = target
				expense.UpdatedAt = now
			}

			if expense.AuditTrail, err = l.ListAudit(ctx, expense.ID); err != nil {
				return err
			}
			res.Expense = expense
			return nil
		})
		return res, err
	})
	if err != nil {
		return TransitionResult{}, err
	}

	if !result.Changed {
		s.logger.DebugContext(ctx, "Transition is a no-op",
			log.FieldExpenseID, req.ExpenseID,
			log.FieldStatus, target)
		return result, nil
	}

	if s.reports != nil {
		s.reports.InvalidateBudget(budgetID)
	}
	s.audit.LogTransition(ctx, req.ExpenseID, string(from), string(target), req.Actor.ID)
	return result, nil
}
