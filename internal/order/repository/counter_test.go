package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	orderdomain "github.com/appsnprojectsstpl-tech/sakambari/internal/order/domain"
)

func setupCounterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS order_counters (
			counter_key TEXT PRIMARY KEY,
			last_allocated BIGINT NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create order_counters: %v", err)
	}
	if err := db.Exec(
		`INSERT INTO order_counters (counter_key, last_allocated, updated_at) VALUES (?, ?, ?)`,
		orderdomain.CounterKeyOrders, 0, time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	return db
}

func testAllocator() *Allocator {
	return NewAllocator(zap.NewNop(), 20, time.Millisecond, nil)
}

func TestReserveBlockIsContiguous(t *testing.T) {
	db := setupCounterTestDB(t)
	alloc := testAllocator()

	start, err := alloc.ReserveBlock(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if start != 1 {
		t.Fatalf("expected first block to start at 1, got %d", start)
	}

	start, err = alloc.ReserveBlock(context.Background(), db, 5)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if start != 4 {
		t.Fatalf("expected second block to start at 4, got %d", start)
	}

	var last int64
	if err := db.Raw(
		`SELECT last_allocated FROM order_counters WHERE counter_key = ?`,
		orderdomain.CounterKeyOrders,
	).Scan(&last).Error; err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if last != 8 {
		t.Fatalf("expected counter at 8, got %d", last)
	}
}

func TestReserveBlockRejectsNonPositiveCount(t *testing.T) {
	db := setupCounterTestDB(t)
	alloc := testAllocator()

	if _, err := alloc.ReserveBlock(context.Background(), db, 0); err != orderdomain.ErrInvalidBlockSize {
		t.Fatalf("expected ErrInvalidBlockSize, got %v", err)
	}
}

func TestReserveBlockMissingCounter(t *testing.T) {
	db := setupCounterTestDB(t)
	if err := db.Exec(`DELETE FROM order_counters`).Error; err != nil {
		t.Fatalf("delete counter: %v", err)
	}
	alloc := testAllocator()

	_, err := alloc.ReserveBlock(context.Background(), db, 1)
	if err == nil {
		t.Fatal("expected error for missing counter row")
	}
}

func TestConcurrentReservationsNeverOverlap(t *testing.T) {
	db := setupCounterTestDB(t)
	alloc := testAllocator()

	const (
		workers   = 4
		perWorker = 5
		blockSize = 3
	)

	var mu sync.Mutex
	var starts []int64
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				start, err := alloc.ReserveBlock(context.Background(), db, blockSize)
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				starts = append(starts, start)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("reserve: %v", err)
	}

	if len(starts) != workers*perWorker {
		t.Fatalf("expected %d blocks, got %d", workers*perWorker, len(starts))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	for i, start := range starts {
		want := int64(i*blockSize) + 1
		if start != want {
			t.Fatalf("block %d: expected start %d, got %d (overlapping or gapped allocation)", i, want, start)
		}
	}
}
