package core

import (
	"errors"
	"strings"
	"testing"
)

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero date, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-09" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("09/03/2025"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Title: "Call 2025", Total: Cents(100000), Currency: "EUR"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Budget{
		{Title: " ", Total: Cents(1), Currency: "EUR"},
		{Title: strings.Repeat("x", 201), Total: Cents(1), Currency: "EUR"},
		{Title: "t", Total: Cents(0), Currency: "EUR"},
		{Title: "t", Total: Cents(1), Currency: "eur"},
		{Title: "t", Total: Cents(1), Currency: ""},
	}
	for i, b := range bads {
		if err := b.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected invalid input, got %v", i, err)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Title: "Marketing", Allocated: Cents(0)}).Validate(); err != nil {
		t.Fatalf("zero allocation should be allowed, got %v", err)
	}
	if err := (Category{Title: "Marketing", Allocated: Cents(-1)}).Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected negative amount error, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Title:    "Ads",
		Amount:   Cents(100),
		Currency: "EUR",
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Title: "", Amount: Cents(1), Currency: "EUR", Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Cents(0), Currency: "EUR", Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Cents(-5), Currency: "EUR", Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Cents(1), Currency: "EU", Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Cents(1), Currency: "EUR"},
	}
	for i, e := range bads {
		if err := e.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected invalid input, got %v", i, err)
		}
	}
}

func TestRoleCanManageBudgets(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleAdmin:        true,
		RoleManager:      true,
		RoleEntrepreneur: false,
		"":               false,
	} {
		if got := role.CanManageBudgets(); got != want {
			t.Fatalf("%q: got %v, want %v", role, got, want)
		}
	}
}

func TestBudgetExceededError(t *testing.T) {
	err := error(&BudgetExceededError{
		CategoryTitle: "Travel",
		Allocated:     Cents(10000),
		Approved:      Cents(9000),
		Requested:     Cents(2000),
	})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatal("expected errors.Is ErrBudgetExceeded")
	}
	var be *BudgetExceededError
	if !errors.As(err, &be) {
		t.Fatal("expected errors.As to match")
	}
	if be.Remaining().Cents != 1000 {
		t.Fatalf("remaining = %d, want 1000", be.Remaining().Cents)
	}
	if !strings.Contains(err.Error(), `"Travel"`) {
		t.Fatalf("error message should name the category: %s", err)
	}
	if !IsDomainError(err) {
		t.Fatal("budget exceeded must be a domain error")
	}
	if IsDomainError(errors.New("disk I/O error")) {
		t.Fatal("plain errors are not domain errors")
	}
}
