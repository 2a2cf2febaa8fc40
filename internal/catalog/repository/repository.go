// Package repository provides keyed read access to the product catalog.
package repository

import (
	"context"

	"gorm.io/gorm"

	catalogdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/catalog/domain"
)

// Repository fetches products by ID set. Callers are responsible for keeping
// the ID set within the storage lookup limit; FindByIDs issues a single
// request for whatever it is given.
type Repository interface {
	FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]catalogdomain.Product, error)
}

type gormRepository struct{}

// Provide constructs the gorm-backed catalog repository.
func Provide() Repository {
	return gormRepository{}
}

func (gormRepository) FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]catalogdomain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []catalogdomain.Product
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
