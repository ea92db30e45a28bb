package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleEntrepreneur Role = "entrepreneur"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	MaxCommentLength     = 1000
)

type (
	Role string

	// Actor is the caller of an operation, as resolved by the auth layer.
	Actor struct {
		ID   string
		Role Role
	}

	Date struct {
		time.Time
	}

	Budget struct {
		ID            int64
		Title         string
		Description   string
		Total         Money
		Currency      string
		StartupCallID string
		CreatedBy     string
		ArchivedAt    *time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	Category struct {
		ID          int64
		BudgetID    int64
		Title       string
		Description string
		Allocated   Money
		Currency    string // always the owning budget's currency
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Expense struct {
		ID          int64
		CategoryID  int64
		Title       string
		Description string
		Amount      Money
		Currency    string
		Date        Date
		Status      Status
		CreatedBy   string
		CreatedAt   time.Time
		UpdatedAt   time.Time
		AuditTrail  []AuditEntry
	}

	// AuditEntry records one applied status transition. Entries are append-only.
	AuditEntry struct {
		ID        int64
		ExpenseID int64
		ActorID   string
		From      Status
		To        Status
		Comment   string
		CreatedAt time.Time
	}
)

var (
	ErrEmptyTitle       = fmt.Errorf("%w: empty title", ErrInvalidInput)
	ErrTitleTooLong     = fmt.Errorf("%w: title too long (max %d characters)", ErrInvalidInput, maxTitleLength)
	ErrDescTooLong      = fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidInput, maxDescriptionLength)
	ErrCommentTooLong   = fmt.Errorf("%w: comment too long (max %d characters)", ErrInvalidInput, MaxCommentLength)
	ErrInvalidCurrency  = fmt.Errorf("%w: currency must be a 3-letter ISO code", ErrInvalidInput)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	ErrNegativeAmount   = fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	ErrMissingDate      = fmt.Errorf("%w: date is required", ErrInvalidInput)
	ErrMissingActor     = fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	ErrCurrencyMismatch = fmt.Errorf("%w: currency does not match category currency", ErrInvalidInput)
	ErrBudgetArchived   = fmt.Errorf("%w: budget is archived", ErrInvalidInput)
)

func (r Role) String() string {
	return string(r)
}

// CanManageBudgets reports whether the role may create budgets and edit categories.
func (r Role) CanManageBudgets() bool {
	return r == RoleAdmin || r == RoleManager
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (b Budget) IsArchived() bool {
	return b.ArchivedAt != nil
}

func (b Budget) Validate() error {
	if err := validateText(b.Title, b.Description); err != nil {
		return err
	}
	if err := b.Total.Validate(); err != nil {
		return err
	}
	return ValidateCurrency(b.Currency)
}

func (c Category) Validate() error {
	if err := validateText(c.Title, c.Description); err != nil {
		return err
	}
	if c.Allocated.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := validateText(e.Title, e.Description); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := ValidateCurrency(e.Currency); err != nil {
		return err
	}
	return e.Date.Validate()
}

// ValidateCurrency accepts three upper-case ASCII letters.
func ValidateCurrency(c string) error {
	if len(c) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// ValidateComment checks an admin comment attached to a transition.
func ValidateComment(comment string) error {
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

func validateText(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return ErrDescTooLong
	}
	return nil
}
