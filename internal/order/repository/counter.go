package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	orderdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/order/domain"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/metrics"
)

// Allocator reserves contiguous blocks of order numbers from the shared
// counter. Concurrent callers never receive overlapping ranges: the
// increment and the read of the new high-water mark happen inside one
// transaction holding the counter row lock.
type Allocator struct {
	log *zap.Logger

	maxRetries int
	retryBase  time.Duration
	metrics    *metrics.MaterializerMetrics
}

// NewAllocator constructs an Allocator with the given retry budget.
func NewAllocator(log *zap.Logger, maxRetries int, retryBase time.Duration, m *metrics.MaterializerMetrics) *Allocator {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if retryBase <= 0 {
		retryBase = 50 * time.Millisecond
	}
	return &Allocator{
		log:        log.Named("order.allocator"),
		maxRetries: maxRetries,
		retryBase:  retryBase,
		metrics:    m,
	}
}

// ReserveBlock atomically advances the counter by count and returns the
// first number of the reserved range [start, start+count-1]. A transaction
// abort (contention) is retried with exponential backoff up to the
// configured attempt count, after which ErrCounterExhausted wraps the last
// error. Reserved numbers are never returned to the counter.
func (a *Allocator) ReserveBlock(ctx context.Context, db *gorm.DB, count int) (int64, error) {
	if count <= 0 {
		return 0, orderdomain.ErrInvalidBlockSize
	}

	var lastErr error
	delay := a.retryBase
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		start, err := a.reserveOnce(ctx, db, count)
		if err == nil {
			a.metrics.CounterAllocated(count)
			return start, nil
		}
		if errors.Is(err, orderdomain.ErrCounterMissing) || ctx.Err() != nil {
			return 0, err
		}
		lastErr = err
		a.metrics.CounterRetry()
		a.log.Warn("counter transaction aborted, retrying",
			zap.Int("attempt", attempt),
			zap.Int("count", count),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return 0, fmt.Errorf("%w: %w", orderdomain.ErrCounterExhausted, lastErr)
}

func (a *Allocator) reserveOnce(ctx context.Context, db *gorm.DB, count int) (int64, error) {
	var newLast int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE order_counters
			 SET last_allocated = last_allocated + ?, updated_at = ?
			 WHERE counter_key = ?`,
			count,
			time.Now().UTC(),
			orderdomain.CounterKeyOrders,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return orderdomain.ErrCounterMissing
		}
		return tx.Raw(
			`SELECT last_allocated FROM order_counters WHERE counter_key = ?`,
			orderdomain.CounterKeyOrders,
		).Scan(&newLast).Error
	})
	if err != nil {
		return 0, err
	}
	return newLast - int64(count) + 1, nil
}
