package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgets/internal/core"
)

func TestStoreWriteAndLatest(t *testing.T) {
	s := New()
	if _, ok := s.Latest(); ok {
		t.Fatal("expected no report before first write")
	}

	summaries := []core.BudgetSummary{{Budget: core.Budget{ID: 1, Title: "Seed", Currency: "EUR"}}}
	ref, err := s.WriteBudgetReport(context.Background(), summaries, time.Now())
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}

	rows, ok := s.Latest()
	if !ok || len(rows) != 2 {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestStoreFailWith(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.FailWith(boom)
	if _, err := s.WriteBudgetReport(context.Background(), nil, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if s.Writes() != 0 {
		t.Fatalf("failed write must not be recorded")
	}
}
