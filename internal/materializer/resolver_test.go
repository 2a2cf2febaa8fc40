package materializer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/catalog/domain"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	customerdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/customer/domain"
	subscriptiondomain "github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/domain"
)

type fakeCustomerRepo struct {
	mu       sync.Mutex
	store    map[string]customerdomain.Customer
	requests int
	maxBatch int
}

func (f *fakeCustomerRepo) FindByIDs(_ context.Context, _ *gorm.DB, ids []string) ([]customerdomain.Customer, error) {
	f.mu.Lock()
	f.requests++
	if len(ids) > f.maxBatch {
		f.maxBatch = len(ids)
	}
	f.mu.Unlock()

	var out []customerdomain.Customer
	for _, id := range ids {
		if c, ok := f.store[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	mu       sync.Mutex
	store    map[string]catalogdomain.Product
	requests int
	maxBatch int
	err      error
}

func (f *fakeCatalogRepo) FindByIDs(_ context.Context, _ *gorm.DB, ids []string) ([]catalogdomain.Product, error) {
	f.mu.Lock()
	f.requests++
	if len(ids) > f.maxBatch {
		f.maxBatch = len(ids)
	}
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []catalogdomain.Product
	for _, id := range ids {
		if p, ok := f.store[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func resolverConfig() config.MaterializerConfig {
	return config.MaterializerConfig{
		LookupBatchSize:   10,
		WriteChunkSize:    400,
		LookupConcurrency: 4,
		CacheTTL:          time.Minute,
	}
}

func subsReferencing(nCustomers, productsPerSub int) []subscriptiondomain.Subscription {
	var subs []subscriptiondomain.Subscription
	for i := 0; i < nCustomers; i++ {
		sub := subscriptiondomain.Subscription{
			ID:         fmt.Sprintf("sub-%d", i),
			CustomerID: fmt.Sprintf("cust-%d", i),
		}
		for j := 0; j < productsPerSub; j++ {
			sub.Items = append(sub.Items, subscriptiondomain.SubscriptionItem{
				ProductID: fmt.Sprintf("prod-%d", j),
				Quantity:  1,
			})
		}
		subs = append(subs, sub)
	}
	return subs
}

func storesFor(subs []subscriptiondomain.Subscription) (map[string]customerdomain.Customer, map[string]catalogdomain.Product) {
	customers := make(map[string]customerdomain.Customer)
	products := make(map[string]catalogdomain.Product)
	for _, sub := range subs {
		customers[sub.CustomerID] = customerdomain.Customer{ID: sub.CustomerID, Name: "Customer " + sub.CustomerID}
		for _, item := range sub.Items {
			products[item.ProductID] = catalogdomain.Product{ID: item.ProductID, Name: "Product " + item.ProductID, UnitPrice: 100}
		}
	}
	return customers, products
}

func TestResolveChunksLookupsToBatchLimit(t *testing.T) {
	// 25 distinct customers and 8 distinct products with batch size 10:
	// ceil(25/10)=3 customer requests and ceil(8/10)=1 product request,
	// regardless of the number of subscriptions.
	subs := subsReferencing(25, 8)
	customerStore, productStore := storesFor(subs)
	customers := &fakeCustomerRepo{store: customerStore}
	products := &fakeCatalogRepo{store: productStore}

	r := NewResolver(zap.NewNop(), customers, products, resolverConfig())
	resolved, err := r.Resolve(context.Background(), nil, subs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(resolved.Customers) != 25 {
		t.Fatalf("expected 25 customers, got %d", len(resolved.Customers))
	}
	if len(resolved.Products) != 8 {
		t.Fatalf("expected 8 products, got %d", len(resolved.Products))
	}
	if customers.requests != 3 {
		t.Fatalf("expected 3 customer lookup batches, got %d", customers.requests)
	}
	if products.requests != 1 {
		t.Fatalf("expected 1 product lookup batch, got %d", products.requests)
	}
	if customers.maxBatch > 10 || products.maxBatch > 10 {
		t.Fatalf("lookup batch exceeded limit: customers=%d products=%d", customers.maxBatch, products.maxBatch)
	}
}

func TestResolveCachesBetweenRuns(t *testing.T) {
	subs := subsReferencing(5, 2)
	customerStore, productStore := storesFor(subs)
	customers := &fakeCustomerRepo{store: customerStore}
	products := &fakeCatalogRepo{store: productStore}

	r := NewResolver(zap.NewNop(), customers, products, resolverConfig())
	if _, err := r.Resolve(context.Background(), nil, subs); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	firstCustomerRequests := customers.requests
	firstProductRequests := products.requests

	resolved, err := r.Resolve(context.Background(), nil, subs)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if len(resolved.Customers) != 5 || len(resolved.Products) != 2 {
		t.Fatalf("unexpected resolution: %d customers, %d products", len(resolved.Customers), len(resolved.Products))
	}
	if customers.requests != firstCustomerRequests || products.requests != firstProductRequests {
		t.Fatal("expected second resolve to be served entirely from cache")
	}
}

func TestResolveOmitsMissingEntities(t *testing.T) {
	subs := subsReferencing(3, 2)
	customerStore, productStore := storesFor(subs)
	delete(customerStore, "cust-1")
	delete(productStore, "prod-0")
	customers := &fakeCustomerRepo{store: customerStore}
	products := &fakeCatalogRepo{store: productStore}

	r := NewResolver(zap.NewNop(), customers, products, resolverConfig())
	resolved, err := r.Resolve(context.Background(), nil, subs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := resolved.Customers["cust-1"]; ok {
		t.Fatal("expected deleted customer to be absent")
	}
	if _, ok := resolved.Products["prod-0"]; ok {
		t.Fatal("expected deleted product to be absent")
	}
	if len(resolved.Customers) != 2 || len(resolved.Products) != 1 {
		t.Fatalf("unexpected resolution: %d customers, %d products", len(resolved.Customers), len(resolved.Products))
	}
}

func TestResolveSurfacesStorageFailure(t *testing.T) {
	subs := subsReferencing(2, 1)
	customerStore, productStore := storesFor(subs)
	customers := &fakeCustomerRepo{store: customerStore}
	products := &fakeCatalogRepo{store: productStore, err: fmt.Errorf("storage unreachable")}

	r := NewResolver(zap.NewNop(), customers, products, resolverConfig())
	if _, err := r.Resolve(context.Background(), nil, subs); err == nil {
		t.Fatal("expected storage failure to surface")
	}
}
