// Package domain contains persistence models for standing recurring orders.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Frequency is the recurrence rule of a subscription.
type Frequency string

const (
	FrequencyDaily          Frequency = "DAILY"
	FrequencyAlternateDay   Frequency = "ALTERNATE_DAY"
	FrequencyWeekendOnly    Frequency = "WEEKEND_ONLY"
	FrequencyCustomWeekdays Frequency = "CUSTOM_WEEKDAYS"
)

// Subscription is a standing recurring-order template. The materializer
// treats subscriptions as read-only; they are created and edited by the
// storefront and admin surfaces.
type Subscription struct {
	ID         string `gorm:"primaryKey" json:"id"`
	CustomerID string `gorm:"not null" json:"customer_id"`

	Frequency Frequency `gorm:"type:text;not null" json:"frequency"`
	// CustomWeekdays holds a comma-separated weekday list, only meaningful
	// for FrequencyCustomWeekdays (e.g. "monday,thursday").
	CustomWeekdays string `gorm:"type:text;not null;default:''" json:"custom_weekdays,omitempty"`

	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`

	// Copied verbatim into generated orders.
	DeliverySlot string `gorm:"type:text;not null;default:''" json:"delivery_slot"`
	DeliveryArea string `gorm:"type:text;not null;default:''" json:"delivery_area"`

	Items []SubscriptionItem `gorm:"foreignKey:SubscriptionID" json:"items"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionItem is one product line of a subscription.
type SubscriptionItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"-"`
	SubscriptionID string       `gorm:"not null;index" json:"-"`
	ProductID      string       `gorm:"not null" json:"product_id"`
	Quantity       int          `gorm:"not null" json:"quantity"`
	Position       int          `gorm:"not null;default:0" json:"-"`
}

// TableName sets the database table name.
func (SubscriptionItem) TableName() string { return "subscription_items" }
