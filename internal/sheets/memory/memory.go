package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budgets/internal/core"
	ports "budgets/internal/sheets"
)

var _ ports.ReportWriter = (*Store)(nil)

// Store keeps exported reports in memory. Used for local runs and tests.
type Store struct {
	mu      sync.Mutex
	reports [][][]any
	fail    error
}

func New() *Store {
	return &Store{}
}

// FailWith makes subsequent writes return err; nil restores normal behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) WriteBudgetReport(_ context.Context, summaries []core.BudgetSummary, generatedAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.reports = append(s.reports, ports.ReportRows(summaries, generatedAt))
	return fmt.Sprintf("mem:%d", len(s.reports)), nil
}

// Latest returns the rows of the last written report.
func (s *Store) Latest() ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return nil, false
	}
	return s.reports[len(s.reports)-1], true
}

// Writes returns how many reports were written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
