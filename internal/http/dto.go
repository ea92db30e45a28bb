package http

import (
	"time"

	"budgets/internal/core"
	"budgets/internal/services"
)

// Amounts are rendered as strings with exactly two decimals.

type budgetDTO struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Total         string     `json:"total"`
	Currency      string     `json:"currency"`
	StartupCallID string     `json:"startup_call_id,omitempty"`
	CreatedBy     string     `json:"created_by"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type categoryDTO struct {
	ID          int64     `json:"id"`
	BudgetID    int64     `json:"budget_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Allocated   string    `json:"allocated"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type auditDTO struct {
	ID        int64     `json:"id"`
	ActorID   string    `json:"actor_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type expenseDTO struct {
	ID          int64      `json:"id"`
	CategoryID  int64      `json:"category_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Date        string     `json:"date"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AuditTrail  []auditDTO `json:"audit_trail,omitempty"`
}

type balanceDTO struct {
	Category  categoryDTO `json:"category"`
	Approved  string      `json:"approved"`
	Remaining string      `json:"remaining"`
}

type summaryDTO struct {
	Budget      budgetDTO    `json:"budget"`
	Allocated   string       `json:"allocated"`
	Spent       string       `json:"spent"`
	Remaining   string       `json:"remaining"`
	Unallocated string       `json:"unallocated"`
	Categories  []balanceDTO `json:"categories"`
}

type expensePageDTO struct {
	Items  []expenseDTO `json:"items"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type expenseListDTO struct {
	Items []expenseDTO `json:"items"`
}

type transitionDTO struct {
	Expense expenseDTO `json:"expense"`
	Changed bool       `json:"changed"`
	EventID string     `json:"event_id,omitempty"`
}

func toBudgetDTO(b core.Budget) budgetDTO {
	return budgetDTO{
		ID:            b.ID,
		Title:         b.Title,
		Description:   b.Description,
		Total:         b.Total.String(),
		Currency:      b.Currency,
		StartupCallID: b.StartupCallID,
		CreatedBy:     b.CreatedBy,
		ArchivedAt:    b.ArchivedAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{
		ID:          c.ID,
		BudgetID:    c.BudgetID,
		Title:       c.Title,
		Description: c.Description,
		Allocated:   c.Allocated.String(),
		Currency:    c.Currency,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toExpenseDTO(e core.Expense) expenseDTO {
	out := expenseDTO{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Title:       e.Title,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Currency:    e.Currency,
		Date:        e.Date.String(),
		Status:      e.Status.String(),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for _, a := range e.AuditTrail {
		out.AuditTrail = append(out.AuditTrail, auditDTO{
			ID:        a.ID,
			ActorID:   a.ActorID,
			From:      a.From.String(),
			To:        a.To.String(),
			Comment:   a.Comment,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}

func toExpenseDTOs(items []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func toBalanceDTO(b core.CategoryBalance) balanceDTO {
	return balanceDTO{
		Category:  toCategoryDTO(b.Category),
		Approved:  b.Approved.String(),
		Remaining: b.Remaining.String(),
	}
}

func toSummaryDTO(s core.BudgetSummary) summaryDTO {
	cats := make([]balanceDTO, 0, len(s.Categories))
	for _, c := range s.Categories {
		cats = append(cats, toBalanceDTO(c))
	}
	return summaryDTO{
		Budget:      toBudgetDTO(s.Budget),
		Allocated:   s.Allocated.String(),
		Spent:       s.Spent.String(),
		Remaining:   s.Remaining.String(),
		Unallocated: s.Unallocated.String(),
		Categories:  cats,
	}
}

func toTransitionDTO(r services.TransitionResult) transitionDTO {
	return transitionDTO{
		Expense: toExpenseDTO(r.Expense),
		Changed: r.Changed,
		EventID: r.EventID,
	}
}
