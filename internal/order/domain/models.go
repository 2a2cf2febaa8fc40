// Package domain contains the materialized order models.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrderStatus tracks an order through fulfillment. The materializer only
// ever writes StatusPending; later transitions belong to order management.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// OrderIDPrefix prefixes every sequential order number.
const OrderIDPrefix = "ORDER-"

// FormatOrderID renders a counter value as the customer-visible order
// number, zero-padded to at least four digits.
func FormatOrderID(n int64) string {
	return fmt.Sprintf("%s%04d", OrderIDPrefix, n)
}

// Order is a materialized, immutable delivery obligation. Rows are created
// exclusively by the batched writer and never mutated here afterwards.
type Order struct {
	// ID is the sequential human-readable order number ("ORDER-0042").
	// Numbers are unique, strictly increasing in allocation order, and
	// never reused; numbers reserved for a failed chunk stay retired.
	ID string `gorm:"primaryKey" json:"id"`

	// SubscriptionID and SourceDate form the idempotency key for
	// subscription-originated orders. SubscriptionID is null for orders
	// placed directly through the storefront.
	SubscriptionID *string   `gorm:"uniqueIndex:ux_orders_source,priority:1" json:"subscription_id,omitempty"`
	SourceDate     time.Time `gorm:"type:date;not null;uniqueIndex:ux_orders_source,priority:2" json:"source_date"`

	CustomerID string `gorm:"not null" json:"customer_id"`
	// Snapshot of the customer profile at materialization time.
	CustomerName    string `gorm:"not null" json:"customer_name"`
	CustomerAddress string `gorm:"type:text;not null;default:''" json:"customer_address"`

	DeliverySlot string `gorm:"type:text;not null;default:''" json:"delivery_slot"`
	DeliveryArea string `gorm:"type:text;not null;default:''" json:"delivery_area"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	// TotalAmount is the sum of quantity x unit price over items, in minor
	// currency units.
	TotalAmount int64             `gorm:"not null" json:"total_amount"`
	Status      OrderStatus       `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// OrderItem is one product line of an order, with name and price frozen at
// materialization time.
type OrderItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"-"`
	OrderID   string       `gorm:"not null;index" json:"-"`
	ProductID string       `gorm:"not null" json:"product_id"`
	Name      string       `gorm:"not null" json:"name"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	UnitPrice int64        `gorm:"not null" json:"unit_price"`
	Position  int          `gorm:"not null;default:0" json:"-"`
}

// TableName sets the database table name.
func (OrderItem) TableName() string { return "order_items" }

// OrderCounter is the singleton source of truth for order numbers. It is
// only ever mutated inside the allocator's atomic read-modify-write.
type OrderCounter struct {
	CounterKey    string    `gorm:"primaryKey;column:counter_key"`
	LastAllocated int64     `gorm:"not null;default:0"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OrderCounter) TableName() string { return "order_counters" }

// CounterKeyOrders is the counter row backing order numbers.
const CounterKeyOrders = "orders"
