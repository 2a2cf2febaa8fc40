// Package materializer turns due subscriptions into persisted orders.
package materializer

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/clock"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/events"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/metrics"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/tracing"
	orderdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/order/domain"
	orderrepo "github.com/appsnprojectsstpl-tech/sakambari/internal/order/repository"
	subscriptiondomain "github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/domain"
	subscriptionrepo "github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/repository"
)

// Summary reports the outcome of one materialization pass.
type Summary struct {
	Materialized         int `json:"materialized"`
	SkippedDuplicate     int `json:"skipped_duplicate"`
	SkippedMissingEntity int `json:"skipped_missing_entity"`
	Failed               int `json:"failed"`
}

// Params collects the driver's dependencies.
type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	Config           config.Config
	SubscriptionRepo subscriptionrepo.Repository
	OrderRepo        orderrepo.Repository
	Allocator        *orderrepo.Allocator
	Resolver         *Resolver
	Outbox           *events.Outbox `optional:"true"`
	GenID            *snowflake.Node
	Metrics          *metrics.MaterializerMetrics `optional:"true"`
}

// Driver orchestrates one materialization pass. It holds no state between
// invocations; every call is a fresh idempotent pass, so overlapping or
// repeated trigger firings are safe.
type Driver struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	loc   *time.Location
	cfg   config.MaterializerConfig

	subscriptionRepo subscriptionrepo.Repository
	orderRepo        orderrepo.Repository
	allocator        *orderrepo.Allocator
	resolver         *Resolver
	outbox           *events.Outbox
	genID            *snowflake.Node
	metrics          *metrics.MaterializerMetrics
}

// NewDriver constructs the materialization driver.
func NewDriver(p Params) *Driver {
	return &Driver{
		db:               p.DB,
		log:              p.Log.Named("materializer"),
		clock:            p.Clock,
		loc:              p.Config.Location(),
		cfg:              p.Config.Materializer,
		subscriptionRepo: p.SubscriptionRepo,
		orderRepo:        p.OrderRepo,
		allocator:        p.Allocator,
		resolver:         p.Resolver,
		outbox:           p.Outbox,
		genID:            p.GenID,
		metrics:          p.Metrics,
	}
}

// eligible pairs a due subscription with its hydrated reference data.
type eligible struct {
	sub      subscriptiondomain.Subscription
	resolved Resolved
}

// Run materializes orders for every subscription due on targetDate. A zero
// targetDate means "today" in the operating timezone. The returned Summary
// is meaningful even when err is non-nil: Failed then covers the work the
// pass could not attempt.
func (d *Driver) Run(ctx context.Context, targetDate time.Time) (Summary, error) {
	started := d.clock.Now()
	ctx, span := tracing.Tracer().Start(ctx, "materializer.run")
	defer span.End()

	if targetDate.IsZero() {
		targetDate = d.clock.Now().In(d.loc)
	}
	y, m, day := targetDate.Date()
	sourceDate := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	span.SetAttributes(attribute.String("source_date", sourceDate.Format("2006-01-02")))

	log := d.log.With(zap.String("source_date", sourceDate.Format("2006-01-02")))

	var summary Summary

	subs, err := d.loadActive(ctx)
	if err != nil {
		log.Error("loading subscriptions failed, aborting run", zap.Error(err))
		d.observeRun("fatal", started)
		return summary, err
	}

	due := d.filterDue(log, subs, sourceDate)
	if len(due) == 0 {
		log.Info("no subscriptions due")
		d.observeRun("ok", started)
		return summary, nil
	}

	remaining, skippedDuplicate, err := d.filterMaterialized(ctx, due, sourceDate)
	if err != nil {
		summary.Failed = len(due)
		log.Error("idempotency pre-filter failed, aborting run", zap.Error(err))
		d.observeRun("fatal", started)
		return summary, err
	}
	due = remaining
	summary.SkippedDuplicate = skippedDuplicate
	d.addSkipped("duplicate", skippedDuplicate)

	resolved, err := d.resolve(ctx, due)
	if err != nil {
		summary.Failed = len(due)
		log.Error("entity resolution failed, aborting run", zap.Error(err))
		d.observeRun("fatal", started)
		return summary, err
	}

	ready, missing := d.validate(log, due, resolved)
	summary.SkippedMissingEntity = missing
	d.addSkipped("missing_entity", missing)

	chunks := chunkBy(ready, d.cfg.WriteChunkSize)
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			for _, rest := range chunks[i:] {
				summary.Failed += len(rest)
			}
			log.Warn("run cancelled mid-pass", zap.Error(ctx.Err()))
			d.observeRun("cancelled", started)
			return summary, ctx.Err()
		}

		written, err := d.writeChunk(ctx, chunk, sourceDate)
		if err != nil {
			// The chunk's subscriptions stay eligible for the next
			// invocation; its reserved numbers, if any, are retired.
			summary.Failed += len(chunk)
			d.chunkFailed()
			log.Error("write chunk failed",
				zap.Int("chunk", i+1),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			continue
		}

		summary.Materialized += written
		duplicates := len(chunk) - written
		summary.SkippedDuplicate += duplicates
		d.addSkipped("duplicate", duplicates)
		d.chunkCommitted(written)
		log.Info("chunk committed",
			zap.Int("chunk", i+1),
			zap.Int("chunks_total", len(chunks)),
			zap.Int("orders", written),
			zap.Int("materialized_so_far", summary.Materialized),
		)
	}

	d.observeRun(runOutcome(summary), started)
	log.Info("materialization pass complete",
		zap.Int("materialized", summary.Materialized),
		zap.Int("skipped_duplicate", summary.SkippedDuplicate),
		zap.Int("skipped_missing_entity", summary.SkippedMissingEntity),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (d *Driver) loadActive(ctx context.Context) ([]subscriptiondomain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()
	return d.subscriptionRepo.ListActive(ctx, d.db)
}

func (d *Driver) filterDue(log *zap.Logger, subs []subscriptiondomain.Subscription, sourceDate time.Time) []subscriptiondomain.Subscription {
	due := make([]subscriptiondomain.Subscription, 0, len(subs))
	for _, sub := range subs {
		ok, err := subscriptiondomain.IsDue(sub, sourceDate)
		if err != nil {
			log.Warn("subscription has unusable recurrence rule, skipping",
				zap.String("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			due = append(due, sub)
		}
	}
	return due
}

func (d *Driver) filterMaterialized(ctx context.Context, due []subscriptiondomain.Subscription, sourceDate time.Time) ([]subscriptiondomain.Subscription, int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()

	ids := make([]string, len(due))
	for i, sub := range due {
		ids[i] = sub.ID
	}
	existing, err := d.orderRepo.FilterMaterialized(ctx, d.db, ids, sourceDate, d.cfg.LookupBatchSize)
	if err != nil {
		return nil, 0, err
	}

	remaining := make([]subscriptiondomain.Subscription, 0, len(due))
	for _, sub := range due {
		if existing[sub.ID] {
			continue
		}
		remaining = append(remaining, sub)
	}
	return remaining, len(due) - len(remaining), nil
}

func (d *Driver) resolve(ctx context.Context, due []subscriptiondomain.Subscription) (Resolved, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()
	return d.resolver.Resolve(ctx, d.db, due)
}

// validate drops subscriptions whose referenced customer or any referenced
// product no longer exists. Each drop is a data-quality warning, not a run
// failure.
func (d *Driver) validate(log *zap.Logger, due []subscriptiondomain.Subscription, resolved Resolved) ([]eligible, int) {
	ready := make([]eligible, 0, len(due))
	missing := 0
	for _, sub := range due {
		if _, ok := resolved.Customers[sub.CustomerID]; !ok {
			log.Warn("customer missing, skipping subscription",
				zap.String("subscription_id", sub.ID),
				zap.String("customer_id", sub.CustomerID),
			)
			missing++
			continue
		}
		complete := true
		for _, item := range sub.Items {
			if _, ok := resolved.Products[item.ProductID]; !ok {
				log.Warn("product missing, skipping subscription",
					zap.String("subscription_id", sub.ID),
					zap.String("product_id", item.ProductID),
				)
				complete = false
				break
			}
		}
		if !complete {
			missing++
			continue
		}
		ready = append(ready, eligible{sub: sub, resolved: resolved})
	}
	return ready, missing
}

// writeChunk reserves a number block sized to the chunk and commits the
// chunk atomically. Allocation completes durably before any order identifier
// is constructed; allocation plus write form one retry unit, so a failure
// here retires the reserved numbers rather than reusing them.
func (d *Driver) writeChunk(ctx context.Context, chunk []eligible, sourceDate time.Time) (int, error) {
	allocCtx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	start, err := d.allocator.ReserveBlock(allocCtx, d.db, len(chunk))
	cancel()
	if err != nil {
		return 0, err
	}

	now := d.clock.Now()
	orders := make([]orderdomain.Order, 0, len(chunk))
	for i, e := range chunk {
		orders = append(orders, d.buildOrder(e, start+int64(i), sourceDate, now))
	}

	writeCtx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()
	written, err := d.orderRepo.InsertChunk(writeCtx, d.db, orders, func(tx *gorm.DB, written []orderdomain.Order) error {
		if d.outbox == nil {
			return nil
		}
		return d.outbox.PublishTx(writeCtx, tx, events.Event{
			Type:      events.TypeOrdersMaterialized,
			DedupeKey: events.TypeOrdersMaterialized + ":" + written[0].ID,
			Payload: map[string]any{
				"source_date": sourceDate.Format("2006-01-02"),
				"count":       len(written),
				"first_order": written[0].ID,
				"last_order":  written[len(written)-1].ID,
			},
		})
	})
	if err != nil {
		return 0, err
	}
	return len(written), nil
}

// buildOrder freezes the customer and product snapshots into an immutable
// order row.
func (d *Driver) buildOrder(e eligible, number int64, sourceDate, now time.Time) orderdomain.Order {
	sub := e.sub
	customer := e.resolved.Customers[sub.CustomerID]

	orderID := orderdomain.FormatOrderID(number)
	subID := sub.ID

	items := make([]orderdomain.OrderItem, 0, len(sub.Items))
	var total int64
	for i, item := range sub.Items {
		product := e.resolved.Products[item.ProductID]
		total += int64(item.Quantity) * product.UnitPrice
		items = append(items, orderdomain.OrderItem{
			ID:        d.genID.Generate(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.UnitPrice,
			Position:  i,
		})
	}

	return orderdomain.Order{
		ID:              orderID,
		SubscriptionID:  &subID,
		SourceDate:      sourceDate,
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerAddress: customer.Address,
		DeliverySlot:    sub.DeliverySlot,
		DeliveryArea:    sub.DeliveryArea,
		Items:           items,
		TotalAmount:     total,
		Status:          orderdomain.StatusPending,
		CreatedAt:       now,
	}
}

// runOutcome labels a completed pass for the duration metric. A pass that
// abandoned one or more chunks is "partial", not "ok".
func runOutcome(s Summary) string {
	if s.Failed > 0 {
		return "partial"
	}
	return "ok"
}

func (d *Driver) observeRun(outcome string, started time.Time) {
	d.metrics.ObserveRun(outcome, d.clock.Now().Sub(started))
}

func (d *Driver) addSkipped(reason string, n int) {
	d.metrics.AddOrdersSkipped(reason, n)
}

func (d *Driver) chunkCommitted(written int) {
	d.metrics.ChunkCommitted()
	d.metrics.AddOrdersCreated(written)
}

func (d *Driver) chunkFailed() {
	d.metrics.ChunkFailed()
}
