// Package repository provides read access to subscriptions.
package repository

import (
	"context"

	"gorm.io/gorm"

	subscriptiondomain "github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/domain"
)

// Repository reads subscription templates. The materializer never writes
// them.
type Repository interface {
	ListActive(ctx context.Context, db *gorm.DB) ([]subscriptiondomain.Subscription, error)
}

type gormRepository struct{}

// Provide constructs the gorm-backed subscription repository.
func Provide() Repository {
	return gormRepository{}
}

func (gormRepository) ListActive(ctx context.Context, db *gorm.DB) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
