package storage

import "database/sql"

// Row types mirror the tables one to one. Timestamps are unix milliseconds.

type Budget struct {
	ID            int64
	Title         string
	Description   string
	TotalCents    int64
	Currency      string
	StartupCallID string
	CreatedBy     string
	ArchivedAt    sql.NullInt64
	CreatedAt     int64
	UpdatedAt     int64
}

type BudgetCategory struct {
	ID             int64
	BudgetID       int64
	Title          string
	Description    string
	AllocatedCents int64
	Currency       string
	CreatedAt      int64
	UpdatedAt      int64
}

type Expense struct {
	ID          int64
	CategoryID  int64
	Title       string
	Description string
	AmountCents int64
	Currency    string
	IncurredOn  string
	Status      string
	CreatedBy   string
	CreatedAt   int64
	UpdatedAt   int64
}

type ExpenseAudit struct {
	ID         int64
	ExpenseID  int64
	ActorID    string
	FromStatus string
	ToStatus   string
	Comment    string
	CreatedAt  int64
}

type NotificationOutbox struct {
	ID             int64
	EventID        string
	ExpenseID      int64
	PreviousStatus string
	NewStatus      string
	Comment        string
	ActorID        string
	Status         string
	Attempts       int64
	LastError      string
	NextAttemptAt  int64
	CreatedAt      int64
	UpdatedAt      int64
	DeliveredAt    sql.NullInt64
}

type CategoryApprovedTotal struct {
	CategoryID    int64
	ApprovedCents int64
}

type NotificationQueueStats struct {
	Pending    int64
	Processing int64
	Delivered  int64
	Failed     int64
}
