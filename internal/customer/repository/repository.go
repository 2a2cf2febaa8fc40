// Package repository provides keyed read access to customer profiles.
package repository

import (
	"context"

	"gorm.io/gorm"

	customerdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/customer/domain"
)

// Repository fetches customers by ID set, one request per call.
type Repository interface {
	FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]customerdomain.Customer, error)
}

type gormRepository struct{}

// Provide constructs the gorm-backed customer repository.
func Provide() Repository {
	return gormRepository{}
}

func (gormRepository) FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]customerdomain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var customers []customerdomain.Customer
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
