package storage

import (
	"context"
)

const outboxColumns = `id, event_id, expense_id, previous_status, new_status, comment, actor_id, status, attempts, last_error, next_attempt_at, created_at, updated_at, delivered_at`

func scanOutbox(s scanner) (NotificationOutbox, error) {
	var i NotificationOutbox
	err := s.Scan(
		&i.ID,
		&i.EventID,
		&i.ExpenseID,
		&i.PreviousStatus,
		&i.NewStatus,
		&i.Comment,
		&i.ActorID,
		&i.Status,
		&i.Attempts,
		&i.LastError,
		&i.NextAttemptAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeliveredAt,
	)
	return i, err
}

const enqueueNotification = `-- name: EnqueueNotification :one
INSERT INTO notification_outbox (event_id, expense_id, previous_status, new_status, comment, actor_id, status, next_attempt_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?)
RETURNING id`

type EnqueueNotificationParams struct {
	EventID        string
	ExpenseID      int64
	PreviousStatus string
	NewStatus      string
	Comment        string
	ActorID        string
	CreatedAt      int64
}

func (q *Queries) EnqueueNotification(ctx context.Context, arg EnqueueNotificationParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, enqueueNotification,
		arg.EventID,
		arg.ExpenseID,
		arg.PreviousStatus,
		arg.NewStatus,
		arg.Comment,
		arg.ActorID,
		arg.CreatedAt,
		arg.CreatedAt,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const dequeueNotificationBatch = `-- name: DequeueNotificationBatch :many
SELECT ` + outboxColumns + ` FROM notification_outbox
WHERE status = 'pending' AND next_attempt_at <= ?
ORDER BY id
LIMIT ?`

func (q *Queries) DequeueNotificationBatch(ctx context.Context, now, limit int64) ([]NotificationOutbox, error) {
	rows, err := q.db.QueryContext(ctx, dequeueNotificationBatch, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NotificationOutbox
	for rows.Next() {
		i, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markNotificationProcessing = `-- name: MarkNotificationProcessing :execrows
UPDATE notification_outbox SET status = 'processing', updated_at = ?
WHERE id = ? AND status = 'pending'`

// MarkNotificationProcessing claims a pending row. Zero rows affected means
// another relay got there first.
func (q *Queries) MarkNotificationProcessing(ctx context.Context, id, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, markNotificationProcessing, now, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markNotificationDelivered = `-- name: MarkNotificationDelivered :exec
UPDATE notification_outbox SET status = 'delivered', attempts = attempts + 1, last_error = '', delivered_at = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) MarkNotificationDelivered(ctx context.Context, id, now int64) error {
	_, err := q.db.ExecContext(ctx, markNotificationDelivered, now, now, id)
	return err
}

const rescheduleNotification = `-- name: RescheduleNotification :exec
UPDATE notification_outbox SET status = 'pending', attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) RescheduleNotification(ctx context.Context, id int64, lastError string, nextAttemptAt, now int64) error {
	_, err := q.db.ExecContext(ctx, rescheduleNotification, lastError, nextAttemptAt, now, id)
	return err
}

const markNotificationFailed = `-- name: MarkNotificationFailed :exec
UPDATE notification_outbox SET status = 'failed', attempts = attempts + 1, last_error = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) MarkNotificationFailed(ctx context.Context, id int64, lastError string, now int64) error {
	_, err := q.db.ExecContext(ctx, markNotificationFailed, lastError, now, id)
	return err
}

const cleanupDeliveredNotifications = `-- name: CleanupDeliveredNotifications :execrows
DELETE FROM notification_outbox WHERE status = 'delivered' AND delivered_at < ?`

func (q *Queries) CleanupDeliveredNotifications(ctx context.Context, before int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, cleanupDeliveredNotifications, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const resetStaleNotifications = `-- name: ResetStaleNotifications :execrows
UPDATE notification_outbox SET status = 'pending', updated_at = ?
WHERE status = 'processing' AND updated_at < ?`

// ResetStaleNotifications returns rows stuck in processing (e.g. after a crash) to pending.
func (q *Queries) ResetStaleNotifications(ctx context.Context, now, staleBefore int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, resetStaleNotifications, now, staleBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const retryFailedNotifications = `-- name: RetryFailedNotifications :execrows
UPDATE notification_outbox SET status = 'pending', attempts = 0, next_attempt_at = ?, updated_at = ?
WHERE status = 'failed'`

func (q *Queries) RetryFailedNotifications(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, retryFailedNotifications, now, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getNotificationQueueStats = `-- name: GetNotificationQueueStats :one
SELECT
    COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
FROM notification_outbox`

func (q *Queries) GetNotificationQueueStats(ctx context.Context) (NotificationQueueStats, error) {
	var i NotificationQueueStats
	err := q.db.QueryRowContext(ctx, getNotificationQueueStats).Scan(
		&i.Pending,
		&i.Processing,
		&i.Delivered,
		&i.Failed,
	)
	return i, err
}
