// Package domain contains the product catalog model consumed by the
// materializer. The catalog itself is maintained elsewhere; this side only
// reads it.
package domain

import "time"

// Product is a catalog entry referenced by subscription items. UnitPrice is
// stored in minor currency units (paise).
type Product struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Unit        string    `gorm:"type:text;not null;default:''" json:"unit"`
	UnitPrice   int64     `gorm:"not null" json:"unit_price"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
