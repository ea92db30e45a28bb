package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgets/internal/core"
	"budgets/internal/log"
)

func TestBuildNotification(t *testing.T) {
	expense := core.Expense{ID: 7, Title: "Booth", Amount: core.Cents(4550), Currency: "EUR", CreatedBy: "f-1"}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		to       core.Status
		title    string
		severity core.Severity
	}{
		{core.StatusApproved, "Expense approved", core.SeveritySuccess},
		{core.StatusRejected, "Expense rejected", core.SeverityError},
		{core.StatusInReview, "Expense under review", core.SeverityInfo},
		{core.StatusPending, "Expense back to pending", core.SeverityInfo},
	}
	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			ev := core.NewStatusChangedEvent(7, core.StatusPending, tt.to, "a-1", "", at)
			n := BuildNotification(ev, "f-1", expense)
			assert.Equal(t, tt.title, n.Title)
			assert.Equal(t, tt.severity, n.Severity)
			assert.Equal(t, ev.EventID, n.EventID)
			assert.Equal(t, "f-1", n.UserID)
			assert.Equal(t, int64(7), n.ExpenseID)
			assert.Equal(t, `Your expense "Booth" of 45.50 EUR is now `+string(tt.to)+".", n.Message)
		})
	}
}

func TestBuildNotificationAppendsComment(t *testing.T) {
	ev := core.NewStatusChangedEvent(1, core.StatusPending, core.StatusRejected, "a-1", "no receipt", time.Now())
	n := BuildNotification(ev, "f-1", core.Expense{Title: "Taxi", Amount: core.Cents(900), Currency: "EUR"})
	assert.Contains(t, n.Message, "Comment: no receipt")
}

func TestSubmitterResolver(t *testing.T) {
	id, err := SubmitterResolver{}.Recipient(context.Background(), core.Expense{CreatedBy: "f-9"})
	require.NoError(t, err)
	assert.Equal(t, "f-9", id)

	_, err = SubmitterResolver{}.Recipient(context.Background(), core.Expense{ID: 3})
	assert.Error(t, err)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(log.Discard())
	assert.NoError(t, n.Deliver(context.Background(), core.Notification{EventID: "e", UserID: "u"}))
}
