package services

import (
	"context"
	"fmt"
	"time"

	"budgets/internal/core"
	"budgets/internal/log"
)

// storageRetryDelay is the pause before the single retry of a failed storage call.
var storageRetryDelay = 50 * time.Millisecond

// withStorageRetry runs fn and retries it once when it fails for a reason
// other than a domain rule. A second failure is reported as
// core.ErrStorageUnavailable.
func withStorageRetry[T any](ctx context.Context, logger *log.Logger, op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || core.IsDomainError(err) || ctx.Err() != nil {
		return v, err
	}

	logger.WarnContext(ctx, "Storage operation failed, retrying once",
		log.FieldOperation, op,
		log.FieldError, err)

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-time.After(storageRetryDelay):
	}

	v, err = fn()
	if err == nil || core.IsDomainError(err) {
		return v, err
	}

	logger.ErrorContext(ctx, "Storage operation failed after retry",
		log.FieldOperation, op,
		log.FieldError, err)

	var zero T
	return zero, fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, err)
}

// withStorageRetryErr is withStorageRetry for calls without a result.
func withStorageRetryErr(ctx context.Context, logger *log.Logger, op string, fn func() error) error {
	_, err := withStorageRetry(ctx, logger, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
