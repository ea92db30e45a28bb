package http

import (
	"net/http"

	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/services"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req createBudgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	if err := requireAmount("total", req.Total); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	budget, err := s.svc.Ledger.CreateBudget(r.Context(), actor, services.NewBudget{
		Title:         sanitizeInput(req.Title),
		Description:   sanitizeInput(req.Description),
		Total:         req.Total.Money,
		Currency:      sanitizeInput(req.Currency),
		StartupCallID: sanitizeInput(req.StartupCallID),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", locationFor("budgets", budget.ID)).
		JSON(toBudgetDTO(budget)).
		Write(w)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.svc.Reports.BudgetSummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(toSummaryDTO(summary)).Write(w)
}

func (s *Server) handleArchiveBudget(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpArchive, err)
		return
	}
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpArchive, err)
		return
	}
	budget, err := s.svc.Ledger.ArchiveBudget(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, log.OpArchive, err)
		return
	}
	NewResponse().JSON(toBudgetDTO(budget)).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	budgetID, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req createCategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	if err := requireAmount("allocated", req.Allocated); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	category, err := s.svc.Ledger.AddCategory(r.Context(), actor, budgetID, services.NewCategory{
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
		Allocated:   req.Allocated.Money,
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", locationFor("categories", category.ID)).
		JSON(toCategoryDTO(category)).
		Write(w)
}

func (s *Server) handleListBudgetExpenses(w http.ResponseWriter, r *http.Request) {
	budgetID, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	filter, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	page, err := s.svc.Reports.ListBudgetExpenses(r.Context(), budgetID, filter)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(expensePageDTO{
		Items:  toExpenseDTOs(page.Items),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}).Write(w)
}

func (s *Server) handleUpdateAllocation(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req updateAllocationRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := requireAmount("allocated", req.Allocated); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	category, err := s.svc.Ledger.UpdateCategoryAllocation(r.Context(), actor, id, req.Allocated.Money)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(toCategoryDTO(category)).Write(w)
}

func (s *Server) handleCategoryBalance(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	balance, err := s.svc.Reports.CategoryRemaining(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(toBalanceDTO(balance)).Write(w)
}

func (s *Server) handleListCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	items, err := s.svc.Ledger.ListExpensesByCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(expenseListDTO{Items: toExpenseDTOs(items)}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	categoryID, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req createExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	if err := requireAmount("amount", req.Amount); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var date core.Date
	if req.Date != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			s.writeError(w, r, log.OpCreate, err)
			return
		}
	}

	expense, err := s.svc.Ledger.CreateExpense(r.Context(), actor, categoryID, services.NewExpense{
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount.Money,
		Currency:    sanitizeInput(req.Currency),
		Date:        date,
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", locationFor("expenses", expense.ID)).
		JSON(toExpenseDTO(expense)).
		Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	expense, err := s.svc.Ledger.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(toExpenseDTO(expense)).Write(w)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpTransition, err)
		return
	}
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpTransition, err)
		return
	}
	var req transitionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpTransition, err)
		return
	}

	result, err := s.svc.Approvals.Transition(r.Context(), services.TransitionRequest{
		ExpenseID: id,
		Target:    req.Status,
		Actor:     actor,
		Comment:   sanitizeInput(req.Comment),
	})
	if err != nil {
		s.writeError(w, r, log.OpTransition, err)
		return
	}
	NewResponse().JSON(toTransitionDTO(result)).Write(w)
}
