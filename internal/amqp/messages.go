package amqp

import (
	"encoding/json"
	"time"

	"budgets/internal/core"
)

// NotificationMessage is the wire form of a status-change notification.
type NotificationMessage struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	ExpenseID int64     `json:"expense_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationMessage(n core.Notification) *NotificationMessage {
	return &NotificationMessage{
		EventID:   n.EventID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Severity:  string(n.Severity),
		ExpenseID: n.ExpenseID,
		Status:    string(n.Status),
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message published by Deliver.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
