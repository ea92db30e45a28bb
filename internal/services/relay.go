package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/storage"
)

// RelayConfig holds configuration for the notification relay
type RelayConfig struct {
	// PollInterval is how often to check for pending events (default: 5s)
	PollInterval time.Duration

	// BatchSize is the max number of events to deliver per poll cycle (default: 20)
	BatchSize int

	// MaxRetries is the number of delivery attempts before an event is marked failed (default: 5)
	MaxRetries int

	// CleanupInterval is how often delivered events are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old delivered events must be before they are purged (default: 24h)
	CleanupAge time.Duration

	// StaleAfter is how long an event may stay claimed before it is released again (default: 5m)
	StaleAfter time.Duration
}

// DefaultRelayConfig returns sensible defaults
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		PollInterval:    5 * time.Second,
		BatchSize:       20,
		MaxRetries:      5,
		CleanupInterval: time.Hour,
		CleanupAge:      24 * time.Hour,
		StaleAfter:      5 * time.Minute,
	}
}

const (
	baseRetryDelay = time.Second
	maxRetryDelay  = 30 * time.Second
)

// retryDelay is the wait before attempt number attempts+1: 1s, 2s, 4s ... capped at 30s.
func retryDelay(attempts int) time.Duration {
	d := baseRetryDelay
	for i := 0; i < attempts && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// NotificationRelay delivers status-change events from the outbox. Delivery
// failures are retried with backoff and never reach the approval path.
type NotificationRelay struct {
	repo     *storage.SQLiteRepository
	notifier Notifier
	resolver RecipientResolver
	config   RelayConfig
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewNotificationRelay(repo *storage.SQLiteRepository, notifier Notifier, resolver RecipientResolver, config RelayConfig, logger *log.Logger) *NotificationRelay {
	if resolver == nil {
		resolver = SubmitterResolver{}
	}
	return &NotificationRelay{
		repo:     repo,
		notifier: notifier,
		resolver: resolver,
		config:   config,
		logger:   logger.WithComponent(log.ComponentRelay),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the delivery loop. Returns an error if already running.
func (r *NotificationRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("notification relay is already running")
	}
	r.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	r.stopCh, r.doneCh = stopCh, doneCh
	r.mu.Unlock()

	now := r.now()
	if n, err := r.repo.ResetStaleEvents(ctx, now.Add(-r.config.StaleAfter), now); err != nil {
		r.logger.WarnContext(ctx, "Failed to release stale events", log.FieldError, err)
	} else if n > 0 {
		r.logger.InfoContext(ctx, "Released stale events", "count", n)
	}

	go r.runLoop(ctx, stopCh, doneCh)

	r.logger.InfoContext(ctx, "Notification relay started",
		"poll_interval", r.config.PollInterval,
		"batch_size", r.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (r *NotificationRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running || r.stopCh == nil {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.stopCh = nil
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Notification relay stopped")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Notification relay stop timed out")
		return ctx.Err()
	}
	return nil
}

func (r *NotificationRelay) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// runLoop clears running before signalling done, whether it exits through
// Stop or through ctx.
func (r *NotificationRelay) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(doneCh)
	}()

	pollTicker := time.NewTicker(r.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(r.config.CleanupInterval)
	defer cleanupTicker.Stop()

	r.ProcessBatch(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			r.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			r.cleanupDelivered(ctx)
		}
	}
}

// ProcessBatch delivers one batch of due events and returns how many were delivered.
func (r *NotificationRelay) ProcessBatch(ctx context.Context) int {
	events, err := r.repo.PendingEvents(ctx, r.now(), r.config.BatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load pending events", log.FieldError, err)
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	r.logger.DebugContext(ctx, "Delivering notification batch", "count", len(events))

	delivered := 0
	for _, pe := range events {
		select {
		case <-r.stopCh:
			return delivered
		case <-ctx.Done():
			return delivered
		default:
		}

		claimed, err := r.repo.ClaimEvent(ctx, pe.ID, r.now())
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to claim event", log.FieldEventID, pe.Event.EventID, log.FieldError, err)
			continue
		}
		if !claimed {
			continue
		}

		if err := r.deliver(ctx, pe.Event); err != nil {
			r.handleFailure(ctx, pe, err)
			continue
		}
		if err := r.repo.MarkEventDelivered(ctx, pe.ID, r.now()); err != nil {
			r.logger.ErrorContext(ctx, "Failed to mark event delivered", log.FieldEventID, pe.Event.EventID, log.FieldError, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *NotificationRelay) deliver(ctx context.Context, ev core.StatusChangedEvent) error {
	expense, err := r.repo.GetExpense(ctx, ev.ExpenseID)
	if err != nil {
		return fmt.Errorf("load expense %d: %w", ev.ExpenseID, err)
	}
	userID, err := r.resolver.Recipient(ctx, expense)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if err := r.notifier.Deliver(ctx, BuildNotification(ev, userID, expense)); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	r.logger.InfoContext(ctx, "Notification delivered",
		log.FieldEventID, ev.EventID,
		log.FieldExpenseID, ev.ExpenseID,
		log.FieldStatus, string(ev.NewStatus))
	return nil
}

func (r *NotificationRelay) handleFailure(ctx context.Context, pe storage.PendingEvent, cause error) {
	attempt := pe.Attempts + 1
	r.logger.WarnContext(ctx, "Notification delivery failed",
		log.FieldEventID, pe.Event.EventID,
		log.FieldAttempt, attempt,
		log.FieldError, cause)

	now := r.now()
	if attempt >= r.config.MaxRetries {
		if err := r.repo.MarkEventFailed(ctx, pe.ID, cause, now); err != nil {
			r.logger.ErrorContext(ctx, "Failed to mark event failed", log.FieldEventID, pe.Event.EventID, log.FieldError, err)
		}
		r.logger.ErrorContext(ctx, "Notification failed permanently after max retries",
			log.FieldEventID, pe.Event.EventID,
			log.FieldExpenseID, pe.Event.ExpenseID,
			"attempts", attempt)
		return
	}

	next := now.Add(retryDelay(pe.Attempts))
	if err := r.repo.RescheduleEvent(ctx, pe.ID, cause, next, now); err != nil {
		r.logger.ErrorContext(ctx, "Failed to reschedule event", log.FieldEventID, pe.Event.EventID, log.FieldError, err)
	}
}

func (r *NotificationRelay) cleanupDelivered(ctx context.Context) {
	n, err := r.repo.CleanupDeliveredEvents(ctx, r.now().Add(-r.config.CleanupAge))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to clean up delivered events", log.FieldError, err)
		return
	}
	if n > 0 {
		r.logger.DebugContext(ctx, "Cleaned up delivered events", "count", n)
	}
}

// Stats returns outbox counters by state.
func (r *NotificationRelay) Stats(ctx context.Context) (storage.NotificationQueueStats, error) {
	return r.repo.EventStats(ctx)
}

// RetryFailed puts every failed event back in the queue.
func (r *NotificationRelay) RetryFailed(ctx context.Context) (int64, error) {
	return r.repo.RetryFailedEvents(ctx, r.now())
}
