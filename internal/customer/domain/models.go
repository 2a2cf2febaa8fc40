// Package domain contains the customer profile model consumed by the
// materializer. Profiles are owned by the account service; this side only
// reads them.
package domain

import "time"

// Customer is a delivery customer. Name and Address are snapshotted into
// each generated order so later profile edits do not alter order history.
type Customer struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Phone     string    `gorm:"type:text;not null;default:''" json:"phone"`
	Address   string    `gorm:"type:text;not null;default:''" json:"address"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
