package services

import (
	"context"
	"fmt"

	"budgets/internal/core"
	"budgets/internal/log"
)

// Notifier hands a notification to the delivery collaborator.
type Notifier interface {
	Deliver(ctx context.Context, n core.Notification) error
}

// RecipientResolver decides who is told about a status change.
type RecipientResolver interface {
	Recipient(ctx context.Context, expense core.Expense) (string, error)
}

// SubmitterResolver addresses the founder who submitted the expense.
type SubmitterResolver struct{}

func (SubmitterResolver) Recipient(_ context.Context, expense core.Expense) (string, error) {
	if expense.CreatedBy == "" {
		return "", fmt.Errorf("expense %d has no submitter to notify", expense.ID)
	}
	return expense.CreatedBy, nil
}

var statusTitles = map[core.Status]string{
	core.StatusPending:  "Expense back to pending",
	core.StatusInReview: "Expense under review",
	core.StatusApproved: "Expense approved",
	core.StatusRejected: "Expense rejected",
}

// BuildNotification renders the message sent for ev.
func BuildNotification(ev core.StatusChangedEvent, userID string, expense core.Expense) core.Notification {
	title, ok := statusTitles[ev.NewStatus]
	if !ok {
		title = "Expense updated"
	}

	msg := fmt.Sprintf("Your expense %q of %s %s is now %s.",
		expense.Title, expense.Amount, expense.Currency, ev.NewStatus)
	if ev.Comment != "" {
		msg += " Comment: " + ev.Comment
	}

	return core.Notification{
		EventID:   ev.EventID,
		UserID:    userID,
		Title:     title,
		Message:   msg,
		Severity:  core.SeverityFor(ev.NewStatus),
		ExpenseID: ev.ExpenseID,
		Status:    ev.NewStatus,
	}
}

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotifier)}
}

func (n *LogNotifier) Deliver(ctx context.Context, msg core.Notification) error {
	n.logger.InfoContext(ctx, "Notification",
		log.FieldEventID, msg.EventID,
		"user_id", msg.UserID,
		"title", msg.Title,
		"severity", string(msg.Severity),
		log.FieldExpenseID, msg.ExpenseID)
	return nil
}
