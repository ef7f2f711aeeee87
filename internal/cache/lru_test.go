package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a becomes most recent
		t.Fatal("expected a")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string](10, -time.Second) // already expired on insert
	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	c.Set("k2", "v")
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected one expired entry, got %d", n)
	}
}

func TestLRUCacheDeletePrefixAndStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	for i := range 3 {
		c.Set(fmt.Sprintf("u1|2025-0%d", i+1), i)
	}
	c.Set("u2|2025-01", 9)

	if n := c.DeletePrefix("u1|"); n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
	if _, ok := c.Get("u2|2025-01"); !ok {
		t.Fatal("other user's entry should survive")
	}
	_, _ = c.Get("u1|2025-01")

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Minute))
	m.Stop()

	m = NewManager()
	m.Register(NewLRUCache[int](1, time.Minute))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
