package cache

import (
	"sync"
	"time"
)

// tagIndex maps tag -> key -> expiry deadline. It is owned by the
// coordinator: rows are added at write time and removed at
// invalidation time or by the sweep once the deadline passes, so the
// index never outlives the entries it points at. Eviction of a key
// from a single tier does not remove its row — the entry may still be
// alive in a slower tier until its deadline.
type tagIndex struct {
	mu   sync.RWMutex
	tags map[string]map[string]time.Time
}

func newTagIndex() *tagIndex {
	return &tagIndex{tags: make(map[string]map[string]time.Time)}
}

// add indexes key under each tag. A zero deadline means no expiry.
func (ti *tagIndex) add(tags []string, key string, expiresAt time.Time) {
	if len(tags) == 0 {
		return
	}
	ti.mu.Lock()
	defer ti.mu.Unlock()
	for _, tag := range tags {
		keys := ti.tags[tag]
		if keys == nil {
			keys = make(map[string]time.Time)
			ti.tags[tag] = keys
		}
		keys[key] = expiresAt
	}
}

// keys returns a snapshot of the keys currently indexed under tag.
func (ti *tagIndex) keys(tag string) []string {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	m := ti.tags[tag]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// clearTag drops every row of tag.
func (ti *tagIndex) clearTag(tag string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	delete(ti.tags, tag)
}

// removeKey drops key from every tag. Invalidation is off the hot
// path, so a full walk is acceptable over maintaining a reverse index.
func (ti *tagIndex) removeKey(key string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	for tag, keys := range ti.tags {
		if _, ok := keys[key]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(ti.tags, tag)
			}
		}
	}
}

// sweep prunes rows whose deadline has passed and returns the number
// removed.
func (ti *tagIndex) sweep(now time.Time) int {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	removed := 0
	for tag, keys := range ti.tags {
		for k, deadline := range keys {
			if !deadline.IsZero() && now.After(deadline) {
				delete(keys, k)
				removed++
			}
		}
		if len(keys) == 0 {
			delete(ti.tags, tag)
		}
	}
	return removed
}

// len returns the number of indexed (tag, key) rows.
func (ti *tagIndex) len() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	n := 0
	for _, keys := range ti.tags {
		n += len(keys)
	}
	return n
}
