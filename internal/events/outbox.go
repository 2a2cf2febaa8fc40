package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes an order event to store in the outbox.
type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// Outbox inserts order events into the order_events table. Events are only
// ever written inside the transaction that produced them.
type Outbox struct {
	genID *snowflake.Node
}

// NewOutbox constructs an Outbox.
func NewOutbox(genID *snowflake.Node) *Outbox {
	return &Outbox{genID: genID}
}

// PublishTx stores an event inside an existing transaction so the event
// commits or rolls back together with the rows it describes.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	var dedupe *string
	if key := strings.TrimSpace(event.DedupeKey); key != "" {
		dedupe = &key
	}

	return db.WithContext(ctx).Exec(
		`INSERT INTO order_events (id, event_type, dedupe_key, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		o.genID.Generate(),
		name,
		dedupe,
		payload,
		time.Now().UTC(),
	).Error
}
