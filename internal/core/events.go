package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

type (
	Severity string

	// StatusChangedEvent is emitted once per committed status transition.
	StatusChangedEvent struct {
		EventID        string
		ExpenseID      int64
		PreviousStatus Status
		NewStatus      Status
		Comment        string
		ActorID        string
		OccurredAt     time.Time
	}

	// Notification is the payload handed to the external notification collaborator.
	Notification struct {
		EventID   string
		UserID    string
		Title     string
		Message   string
		Severity  Severity
		ExpenseID int64
		Status    Status
	}
)

// NewStatusChangedEvent builds an event with a fresh id.
func NewStatusChangedEvent(expenseID int64, from, to Status, actorID, comment string, at time.Time) StatusChangedEvent {
	return StatusChangedEvent{
		EventID:        uuid.NewString(),
		ExpenseID:      expenseID,
		PreviousStatus: from,
		NewStatus:      to,
		Comment:        comment,
		ActorID:        actorID,
		OccurredAt:     at,
	}
}

// SeverityFor maps the resulting status of a transition to a notification severity.
func SeverityFor(s Status) Severity {
	switch s {
	case StatusApproved:
		return SeveritySuccess
	case StatusRejected:
		return SeverityError
	default:
		return SeverityInfo
	}
}
