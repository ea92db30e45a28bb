package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"budgets/internal/cache"
	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/storage"
)

const summaryCacheSize = 256

// ReportingService answers read-only questions about budgets. Summaries are
// cached per budget until a write to that budget invalidates them.
type ReportingService struct {
	repo       *storage.SQLiteRepository
	calculator AllocationCalculator
	summaries  *cache.LRU[int64, core.BudgetSummary]
	group      singleflight.Group
	logger     *log.Logger

	// generations counts invalidations per budget. A load only caches its
	// result if no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[int64]uint64
}

func NewReportingService(repo *storage.SQLiteRepository, cacheTTL time.Duration, logger *log.Logger) *ReportingService {
	return &ReportingService{
		repo:        repo,
		summaries:   cache.NewLRU[int64, core.BudgetSummary](summaryCacheSize, cacheTTL),
		logger:      logger.WithComponent(log.ComponentReporting),
		generations: make(map[int64]uint64),
	}
}

// Cache exposes the summary cache so a janitor can sweep it.
func (s *ReportingService) Cache() cache.Cleaner {
	return s.summaries
}

// InvalidateBudget drops the cached summary of a budget. Loads already in
// flight will not cache what they read.
func (s *ReportingService) InvalidateBudget(budgetID int64) {
	s.mu.Lock()
	s.generations[budgetID]++
	s.summaries.Delete(budgetID)
	s.mu.Unlock()
	s.group.Forget(strconv.FormatInt(budgetID, 10))
}

func (s *ReportingService) generation(budgetID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[budgetID]
}

func (s *ReportingService) cacheSummary(budgetID int64, gen uint64, summary core.BudgetSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[budgetID] == gen {
		s.summaries.Set(budgetID, summary)
	}
}

// CategoryRemaining returns allocated minus approved for one category.
func (s *ReportingService) CategoryRemaining(ctx context.Context, categoryID int64) (core.CategoryBalance, error) {
	return withStorageRetry(ctx, s.logger, "category remaining", func() (core.CategoryBalance, error) {
		category, err := s.repo.GetCategory(ctx, categoryID)
		if err != nil {
			return core.CategoryBalance{}, err
		}
		approved, err := s.calculator.ApprovedTotal(ctx, s.repo, categoryID, 0)
		if err != nil {
			return core.CategoryBalance{}, err
		}
		return core.CategoryBalance{
			Category:  category,
			Approved:  approved,
			Remaining: s.calculator.Remaining(category, approved),
		}, nil
	})
}

// BudgetSpent sums approved expenses across every category of the budget.
func (s *ReportingService) BudgetSpent(ctx context.Context, budgetID int64) (core.Money, error) {
	summary, err := s.BudgetSummary(ctx, budgetID)
	if err != nil {
		return core.Money{}, err
	}
	return summary.Spent, nil
}

// BudgetSummary aggregates a budget with per-category balances. Concurrent
// callers share one load; each caller still returns when its own ctx ends.
func (s *ReportingService) BudgetSummary(ctx context.Context, budgetID int64) (core.BudgetSummary, error) {
	if cached, ok := s.summaries.Get(budgetID); ok {
		return cached, nil
	}

	ch := s.group.DoChan(strconv.FormatInt(budgetID, 10), func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		gen := s.generation(budgetID)
		summary, err := withStorageRetry(loadCtx, s.logger, "budget summary", func() (core.BudgetSummary, error) {
			return s.loadSummary(loadCtx, budgetID)
		})
		if err != nil {
			return nil, err
		}
		s.cacheSummary(budgetID, gen, summary)
		return summary, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return core.BudgetSummary{}, res.Err
		}
		return res.Val.(core.BudgetSummary), nil
	case <-ctx.Done():
		return core.BudgetSummary{}, ctx.Err()
	}
}

func (s *ReportingService) loadSummary(ctx context.Context, budgetID int64) (core.BudgetSummary, error) {
	var (
		budget     core.Budget
		categories []core.Category
		approved   map[int64]core.Money
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budget, err = s.repo.GetBudget(gctx, budgetID)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.repo.ListCategories(gctx, budgetID)
		return err
	})
	g.Go(func() error {
		var err error
		approved, err = s.repo.ApprovedTotals(gctx, budgetID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.BudgetSummary{}, err
	}

	summary := core.BudgetSummary{
		Budget:     budget,
		Categories: make([]core.CategoryBalance, 0, len(categories)),
	}
	for _, c := range categories {
		spent := approved[c.ID]
		summary.Allocated = summary.Allocated.Add(c.Allocated)
		summary.Spent = summary.Spent.Add(spent)
		summary.Categories = append(summary.Categories, core.CategoryBalance{
			Category:  c,
			Approved:  spent,
			Remaining: s.calculator.Remaining(c, spent),
		})
	}
	summary.Remaining = budget.Total.Sub(summary.Spent)
	summary.Unallocated = budget.Total.Sub(summary.Allocated)
	return summary, nil
}

// ListBudgetExpenses pages through a budget's expenses, newest first.
func (s *ReportingService) ListBudgetExpenses(ctx context.Context, budgetID int64, filter core.ExpenseFilter) (core.ExpensePage, error) {
	f, err := filter.Normalize()
	if err != nil {
		return core.ExpensePage{}, err
	}
	// Count and page read one snapshot, so Total matches the page.
	return withStorageRetry(ctx, s.logger, "list budget expenses", func() (core.ExpensePage, error) {
		var page core.ExpensePage
		err := s.repo.InTx(ctx, func(l storage.Ledger) error {
			if _, err := l.GetBudget(ctx, budgetID); err != nil {
				return err
			}
			var err error
			page, err = l.ListExpensesByBudget(ctx, budgetID, f)
			return err
		})
		return page, err
	})
}

// ActiveSummaries returns the summary of every non-archived budget.
func (s *ReportingService) ActiveSummaries(ctx context.Context) ([]core.BudgetSummary, error) {
	budgets, err := withStorageRetry(ctx, s.logger, "list active budgets", func() ([]core.Budget, error) {
		return s.repo.ListActiveBudgets(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]core.BudgetSummary, 0, len(budgets))
	for _, b := range budgets {
		summary, err := s.BudgetSummary(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
