package cache

import (
	"testing"
	"time"
)

func TestGetManySplitsHitsAndMisses(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	hits, misses := c.GetMany([]string{"a", "b", "c"})
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits["a"] != 1 || hits["b"] != 2 {
		t.Fatalf("unexpected hit values: %v", hits)
	}
	if len(misses) != 1 || misses[0] != "c" {
		t.Fatalf("expected miss [c], got %v", misses)
	}
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry evicted on read, len=%d", c.Len())
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected zero-ttl entry to persist")
	}
}
