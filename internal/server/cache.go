package server

import "sync"

// evalCache is a bounded FIFO cache for evaluator results. It is
// process-local: horizontally scaled instances may compute the same input
// independently, which is acceptable because results are deterministic.
type evalCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]Evaluation
}

func newEvalCache(capacity int) *evalCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &evalCache{
		capacity: capacity,
		entries:  make(map[string]Evaluation),
	}
}

func (c *evalCache) Get(key string) (Evaluation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[key]
	return result, ok
}

func (c *evalCache) Put(key string, result Evaluation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = result
		return
	}
	for len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = result
	c.order = append(c.order, key)
}

func (c *evalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
