// Package events stores order lifecycle events for downstream consumers
// (notification and delivery-tracking pipelines poll the outbox table).
package events

// Event types emitted by the materializer.
const (
	TypeOrdersMaterialized = "orders.materialized"
)
