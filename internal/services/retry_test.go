package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgets/internal/core"
	"budgets/internal/log"
	"budgets/internal/storage"
)

func fastRetry(t *testing.T) {
	t.Helper()
	prev := storageRetryDelay
	storageRetryDelay = time.Millisecond
	t.Cleanup(func() { storageRetryDelay = prev })
}

func TestWithStorageRetry(t *testing.T) {
	fastRetry(t)
	ctx := context.Background()
	logger := log.Discard()

	t.Run("recovers on second attempt", func(t *testing.T) {
		calls := 0
		v, err := withStorageRetry(ctx, logger, "op", func() (int, error) {
			calls++
			if calls == 1 {
				return 0, errors.New("database is locked")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("domain errors are not retried", func(t *testing.T) {
		calls := 0
		err := withStorageRetryErr(ctx, logger, "op", func() error {
			calls++
			return core.NotFoundf("expense", 1)
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("second failure is storage unavailable", func(t *testing.T) {
		cause := errors.New("disk I/O error")
		calls := 0
		_, err := withStorageRetry(ctx, logger, "op", func() (int, error) {
			calls++
			return 0, cause
		})
		assert.ErrorIs(t, err, core.ErrStorageUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context is not retried", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		_, err := withStorageRetry(cctx, logger, "op", func() (int, error) {
			calls++
			return 0, context.Canceled
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestTransitionReportsStorageUnavailable(t *testing.T) {
	fastRetry(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	svc := NewApprovalService(storage.NewRepository(db), nil, log.Discard())
	_, err = svc.Transition(context.Background(), TransitionRequest{ExpenseID: 1, Target: "approved", Actor: admin})
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.False(t, core.IsDomainError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBudgetRetriesOnce(t *testing.T) {
	fastRetry(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM budgets WHERE id").WithArgs(int64(3)).WillReturnError(errors.New("database is locked"))
	mock.ExpectQuery("FROM budgets WHERE id").WithArgs(int64(3)).WillReturnError(errors.New("database is locked"))

	svc := NewLedgerService(storage.NewRepository(db), nil, true, log.Discard())
	_, err = svc.GetBudget(context.Background(), 3)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
