package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// MemoryTier is the in-process tier: entries sharded by key hash so
// distinct keys mutate in parallel, each shard guarded by its own lock
// with LRU eviction under capacity pressure. Per-key operations are
// linearizable because a shard stores and returns full-value copies
// under its lock; a torn read is impossible.
type MemoryTier struct {
	name     string
	shards   []*shard
	mask     uint64
	capacity int // per shard

	onEvict func(key string)
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	lru     *lruList
}

// MemoryOption configures a MemoryTier.
type MemoryOption func(*MemoryTier)

// WithEvictionHook installs a callback invoked (outside shard locks is
// NOT guaranteed; keep it cheap) for every capacity eviction.
func WithEvictionHook(fn func(key string)) MemoryOption {
	return func(t *MemoryTier) { t.onEvict = fn }
}

// NewMemoryTier creates a memory tier with shardCount shards (rounded
// up to a power of two) holding at most capacity entries in total.
func NewMemoryTier(name string, shardCount, capacity int, opts ...MemoryOption) *MemoryTier {
	if shardCount < 1 {
		shardCount = 1
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}
	perShard := capacity / n
	if perShard < 1 {
		perShard = 1
	}

	t := &MemoryTier{
		name:     name,
		shards:   make([]*shard, n),
		mask:     uint64(n - 1),
		capacity: perShard,
	}
	for i := range t.shards {
		t.shards[i] = &shard{
			entries: make(map[string]*Entry),
			lru:     newLRUList(),
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements Tier.
func (t *MemoryTier) Name() string { return t.name }

func (t *MemoryTier) shardFor(key []byte) *shard {
	return t.shards[xxhash.Sum64(key)&t.mask]
}

// Get implements Tier. Expired entries are reclaimed lazily here and
// never returned as hits.
func (t *MemoryTier) Get(_ context.Context, key []byte) (*Entry, error) {
	sh := t.shardFor(key)
	k := string(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[k]
	if !ok {
		return nil, nil
	}
	if e.Expired(time.Now()) {
		delete(sh.entries, k)
		sh.lru.remove(k)
		return nil, nil
	}
	sh.lru.touch(k)
	return e.Clone(), nil
}

// Set implements Tier, evicting the least recently used entry of the
// shard when it is full.
func (t *MemoryTier) Set(_ context.Context, e *Entry) error {
	sh := t.shardFor(e.Key)
	k := string(e.Key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.entries[k]; !exists && len(sh.entries) >= t.capacity {
		if victim := sh.lru.evict(); victim != "" {
			delete(sh.entries, victim)
			if t.onEvict != nil {
				t.onEvict(victim)
			}
		}
	}
	sh.entries[k] = e.Clone()
	sh.lru.touch(k)
	return nil
}

// Delete implements Tier.
func (t *MemoryTier) Delete(_ context.Context, key []byte) (bool, error) {
	sh := t.shardFor(key)
	k := string(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.entries[k]; !ok {
		return false, nil
	}
	delete(sh.entries, k)
	sh.lru.remove(k)
	return true, nil
}

// Len implements Tier.
func (t *MemoryTier) Len() int {
	total := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// SweepExpired implements Sweeper: it walks every shard and removes
// entries past their TTL, returning the number reclaimed.
func (t *MemoryTier) SweepExpired(now time.Time) int {
	removed := 0
	for _, sh := range t.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.Expired(now) {
				delete(sh.entries, k)
				sh.lru.remove(k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
