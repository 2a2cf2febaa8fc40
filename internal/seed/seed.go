// Package seed installs demo reference data for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	subscriptiondomain "github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/domain"
)

type demoProduct struct {
	id        string
	name      string
	unit      string
	unitPrice int64
}

type demoCustomer struct {
	id      string
	name    string
	phone   string
	address string
}

var demoProducts = []demoProduct{
	{"prod-milk-1l", "Toned Milk 1L", "litre", 5600},
	{"prod-curd-500g", "Curd 500g", "pack", 3500},
	{"prod-paneer-200g", "Paneer 200g", "pack", 9000},
	{"prod-bread-400g", "Wheat Bread 400g", "loaf", 4500},
}

var demoCustomers = []demoCustomer{
	{"cust-demo-1", "Asha Rao", "+91-9000000001", "12 MG Road, Ward 4"},
	{"cust-demo-2", "Vikram Shetty", "+91-9000000002", "3 Temple Street, Ward 7"},
}

// EnsureDemoData seeds products, customers, and a pair of subscriptions so a
// fresh local database has something to materialize. Idempotent: existing
// rows are left untouched.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range demoProducts {
			if err := tx.Exec(
				`INSERT INTO products (id, name, unit, unit_price, is_available, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO NOTHING`,
				p.id, p.name, p.unit, p.unitPrice, true, now, now,
			).Error; err != nil {
				return err
			}
		}

		for _, c := range demoCustomers {
			if err := tx.Exec(
				`INSERT INTO customers (id, name, phone, address, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO NOTHING`,
				c.id, c.name, c.phone, c.address, now, now,
			).Error; err != nil {
				return err
			}
		}

		startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		subs := []struct {
			id        string
			customer  string
			frequency subscriptiondomain.Frequency
			weekdays  string
			slot      string
			area      string
			items     []struct {
				product  string
				quantity int
			}
		}{
			{
				id:        "sub-demo-1",
				customer:  "cust-demo-1",
				frequency: subscriptiondomain.FrequencyDaily,
				slot:      "morning",
				area:      "ward-4",
				items: []struct {
					product  string
					quantity int
				}{{"prod-milk-1l", 2}, {"prod-curd-500g", 1}},
			},
			{
				id:        "sub-demo-2",
				customer:  "cust-demo-2",
				frequency: subscriptiondomain.FrequencyCustomWeekdays,
				weekdays:  "monday,thursday",
				slot:      "evening",
				area:      "ward-7",
				items: []struct {
					product  string
					quantity int
				}{{"prod-paneer-200g", 1}, {"prod-bread-400g", 2}},
			},
		}

		for _, s := range subs {
			var count int64
			if err := tx.Raw(
				`SELECT COUNT(1) FROM subscriptions WHERE id = ?`, s.id,
			).Scan(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Exec(
				`INSERT INTO subscriptions (id, customer_id, frequency, custom_weekdays, start_date, is_active, delivery_slot, delivery_area, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.id, s.customer, s.frequency, s.weekdays, startDate, true, s.slot, s.area, now, now,
			).Error; err != nil {
				return err
			}
			for i, item := range s.items {
				if err := tx.Exec(
					`INSERT INTO subscription_items (id, subscription_id, product_id, quantity, position)
					 VALUES (?, ?, ?, ?, ?)`,
					node.Generate(), s.id, item.product, item.quantity, i,
				).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
