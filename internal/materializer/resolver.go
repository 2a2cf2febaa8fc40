package materializer

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	catalogdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/catalog/domain"
	catalogrepo "github.com/appsnprojectsstpl-tech/sakambari/internal/catalog/repository"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/cache"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	customerdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/customer/domain"
	customerrepo "github.com/appsnprojectsstpl-tech/sakambari/internal/customer/repository"
	subscriptiondomain "github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/domain"
)

// Resolved holds the hydrated reference data for one materialization pass.
type Resolved struct {
	Customers map[string]customerdomain.Customer
	Products  map[string]catalogdomain.Product
}

// Resolver bulk-fetches the distinct customers and products referenced by a
// due set. Lookups are chunked to the storage fetch-by-ids limit and issued
// concurrently; the request count is ceil(distinct_keys / batch) regardless
// of how many subscriptions are due.
type Resolver struct {
	log *zap.Logger

	customerRepo customerrepo.Repository
	catalogRepo  catalogrepo.Repository

	customerCache *cache.TTLCache[string, customerdomain.Customer]
	productCache  *cache.TTLCache[string, catalogdomain.Product]

	batchSize   int
	concurrency int
	cacheTTL    time.Duration
}

// NewResolver constructs a Resolver with fresh caches.
func NewResolver(log *zap.Logger, customers customerrepo.Repository, products catalogrepo.Repository, cfg config.MaterializerConfig) *Resolver {
	return &Resolver{
		log:           log.Named("materializer.resolver"),
		customerRepo:  customers,
		catalogRepo:   products,
		customerCache: cache.NewTTLCache[string, customerdomain.Customer](),
		productCache:  cache.NewTTLCache[string, catalogdomain.Product](),
		batchSize:     cfg.LookupBatchSize,
		concurrency:   cfg.LookupConcurrency,
		cacheTTL:      cfg.CacheTTL,
	}
}

// Resolve hydrates every customer and product referenced by subs. Missing
// entities are simply absent from the returned maps; the driver decides
// which subscriptions that disqualifies. An error here means the storage
// layer itself failed.
func (r *Resolver) Resolve(ctx context.Context, db *gorm.DB, subs []subscriptiondomain.Subscription) (Resolved, error) {
	customerIDs := make(map[string]bool)
	productIDs := make(map[string]bool)
	for _, sub := range subs {
		customerIDs[sub.CustomerID] = true
		for _, item := range sub.Items {
			productIDs[item.ProductID] = true
		}
	}

	resolved := Resolved{
		Customers: make(map[string]customerdomain.Customer, len(customerIDs)),
		Products:  make(map[string]catalogdomain.Product, len(productIDs)),
	}

	cachedCustomers, missingCustomers := r.customerCache.GetMany(sortedKeys(customerIDs))
	for id, c := range cachedCustomers {
		resolved.Customers[id] = c
	}
	cachedProducts, missingProducts := r.productCache.GetMany(sortedKeys(productIDs))
	for id, p := range cachedProducts {
		resolved.Products[id] = p
	}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for _, ids := range chunkBy(missingCustomers, r.batchSize) {
		ids := ids
		group.Go(func() error {
			customers, err := r.customerRepo.FindByIDs(gctx, db, ids)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, c := range customers {
				resolved.Customers[c.ID] = c
				r.customerCache.Set(c.ID, c, r.cacheTTL)
			}
			mu.Unlock()
			return nil
		})
	}

	for _, ids := range chunkBy(missingProducts, r.batchSize) {
		ids := ids
		group.Go(func() error {
			products, err := r.catalogRepo.FindByIDs(gctx, db, ids)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, p := range products {
				resolved.Products[p.ID] = p
				r.productCache.Set(p.ID, p, r.cacheTTL)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Resolved{}, err
	}

	r.log.Debug("resolved reference data",
		zap.Int("customers", len(resolved.Customers)),
		zap.Int("products", len(resolved.Products)),
		zap.Int("customer_cache_hits", len(cachedCustomers)),
		zap.Int("product_cache_hits", len(cachedProducts)),
	)
	return resolved, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
