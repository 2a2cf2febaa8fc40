// Package repository persists materialized orders and allocates their
// sequential numbers.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	orderdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/order/domain"
)

// Repository is the order store surface the materializer depends on.
type Repository interface {
	// FilterMaterialized returns the subset of subscriptionIDs that already
	// have an order for sourceDate. The lookup is chunked to batchSize keys
	// per query.
	FilterMaterialized(ctx context.Context, db *gorm.DB, subscriptionIDs []string, sourceDate time.Time, batchSize int) (map[string]bool, error)

	// InsertChunk commits one write chunk atomically: orders, their items,
	// and whatever afterInsert writes (the chunk's outbox event) either all
	// persist or none do. The idempotency check is re-verified inside the
	// transaction; orders whose (subscription_id, source_date) key already
	// exists are dropped from the chunk rather than failing it. Returns the
	// orders actually written. afterInsert may be nil and is only invoked
	// when at least one order was written.
	InsertChunk(ctx context.Context, db *gorm.DB, orders []orderdomain.Order, afterInsert func(tx *gorm.DB, written []orderdomain.Order) error) (written []orderdomain.Order, err error)
}

type gormRepository struct{}

// Provide constructs the gorm-backed order repository.
func Provide() Repository {
	return gormRepository{}
}

func (gormRepository) FilterMaterialized(ctx context.Context, db *gorm.DB, subscriptionIDs []string, sourceDate time.Time, batchSize int) (map[string]bool, error) {
	existing := make(map[string]bool, len(subscriptionIDs))
	if len(subscriptionIDs) == 0 {
		return existing, nil
	}
	if batchSize <= 0 {
		batchSize = len(subscriptionIDs)
	}

	for start := 0; start < len(subscriptionIDs); start += batchSize {
		end := start + batchSize
		if end > len(subscriptionIDs) {
			end = len(subscriptionIDs)
		}
		var found []string
		err := db.WithContext(ctx).
			Table("orders").
			Select("subscription_id").
			Where("source_date = ? AND subscription_id IN ?", sourceDate, subscriptionIDs[start:end]).
			Scan(&found).Error
		if err != nil {
			return nil, err
		}
		for _, id := range found {
			existing[id] = true
		}
	}
	return existing, nil
}

func (gormRepository) InsertChunk(ctx context.Context, db *gorm.DB, orders []orderdomain.Order, afterInsert func(tx *gorm.DB, written []orderdomain.Order) error) ([]orderdomain.Order, error) {
	if len(orders) == 0 {
		return nil, orderdomain.ErrEmptyChunk
	}

	var written []orderdomain.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		written = nil

		// Re-verify the idempotency key inside the write transaction. A
		// concurrent run may have materialized some of these subscriptions
		// after the driver's pre-filter; the unique index on
		// (subscription_id, source_date) backstops anything this check
		// still races with, aborting the whole chunk.
		subIDs := make([]string, 0, len(orders))
		for _, o := range orders {
			if o.SubscriptionID != nil {
				subIDs = append(subIDs, *o.SubscriptionID)
			}
		}
		existing := make(map[string]bool, len(subIDs))
		if len(subIDs) > 0 {
			var found []string
			if err := tx.
				Table("orders").
				Select("subscription_id").
				Where("source_date = ? AND subscription_id IN ?", orders[0].SourceDate, subIDs).
				Scan(&found).Error; err != nil {
				return err
			}
			for _, id := range found {
				existing[id] = true
			}
		}

		for _, o := range orders {
			if o.SubscriptionID != nil && existing[*o.SubscriptionID] {
				continue
			}
			written = append(written, o)
		}
		if len(written) == 0 {
			return nil
		}

		rows := make([]orderdomain.Order, len(written))
		copy(rows, written)
		for i := range rows {
			rows[i].Items = nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		var items []orderdomain.OrderItem
		for _, o := range written {
			items = append(items, o.Items...)
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		if afterInsert != nil {
			return afterInsert(tx, written)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}
