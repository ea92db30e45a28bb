package sheets

import (
	"context"
	"time"

	"budgets/internal/core"
)

// ReportWriter publishes budget summaries to an external spreadsheet.
type ReportWriter interface {
	// WriteBudgetReport replaces the report with the given summaries and
	// returns a reference to the written range.
	WriteBudgetReport(ctx context.Context, summaries []core.BudgetSummary, generatedAt time.Time) (ref string, err error)
}

// ReportHeader is the first row of every exported report.
var ReportHeader = []any{
	"Budget ID", "Budget", "Currency", "Category ID", "Category",
	"Allocated", "Approved", "Remaining", "Generated At",
}

// ReportRows flattens summaries into spreadsheet rows: the header, then one
// row per category followed by a total row for each budget. Amounts are
// fixed two-decimal strings.
func ReportRows(summaries []core.BudgetSummary, generatedAt time.Time) [][]any {
	stamp := generatedAt.UTC().Format(time.RFC3339)
	rows := [][]any{ReportHeader}
	for _, s := range summaries {
		b := s.Budget
		for _, c := range s.Categories {
			rows = append(rows, []any{
				b.ID, b.Title, b.Currency, c.Category.ID, c.Category.Title,
				c.Category.Allocated.String(), c.Approved.String(), c.Remaining.String(), stamp,
			})
		}
		rows = append(rows, []any{
			b.ID, b.Title, b.Currency, "", "TOTAL",
			b.Total.String(), s.Spent.String(), s.Remaining.String(), stamp,
		})
	}
	return rows
}
