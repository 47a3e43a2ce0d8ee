package server

import "testing"

func TestEvalCacheEvictsOldestFirst(t *testing.T) {
	cache := newEvalCache(2)
	cache.Put("a", Evaluation{Score: 1})
	cache.Put("b", Evaluation{Score: 2})
	cache.Put("c", Evaluation{Score: 3})

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if result, ok := cache.Get("b"); !ok || result.Score != 2 {
		t.Fatalf("expected b to survive with score 2, got %+v ok=%v", result, ok)
	}
	if result, ok := cache.Get("c"); !ok || result.Score != 3 {
		t.Fatalf("expected c with score 3, got %+v ok=%v", result, ok)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}

func TestEvalCacheUpdateDoesNotEvict(t *testing.T) {
	cache := newEvalCache(2)
	cache.Put("a", Evaluation{Score: 1})
	cache.Put("b", Evaluation{Score: 2})
	cache.Put("a", Evaluation{Score: 9})

	if result, ok := cache.Get("a"); !ok || result.Score != 9 {
		t.Fatalf("expected a updated to 9, got %+v ok=%v", result, ok)
	}
	if _, ok := cache.Get("b"); !ok {
		t.Fatalf("expected b to survive an update of a")
	}
}

func TestEvalCacheZeroCapacity(t *testing.T) {
	cache := newEvalCache(0)
	cache.Put("a", Evaluation{Score: 1})
	if result, ok := cache.Get("a"); !ok || result.Score != 1 {
		t.Fatalf("expected single-entry cache to hold a, got %+v ok=%v", result, ok)
	}
	cache.Put("b", Evaluation{Score: 2})
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected a evicted at capacity 1")
	}
}
