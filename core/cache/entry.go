// Package cache implements the multi-tier cache layer of the gateway
// core: an ordered chain of tiers coordinated with read-through
// promotion, best-effort write propagation and tag-based invalidation.
package cache

import "time"

// Entry is one cached value. Keys and values are opaque byte sequences;
// key derivation and value serialization are the caller's concern.
// Entries are copied across tiers, never shared by reference, so no
// tier's lifetime couples to another's.
type Entry struct {
	Key       []byte
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
	Tags      []string
}

// Expired reports whether the entry's TTL has elapsed at now. A zero or
// negative TTL means the entry never expires.
func (e *Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// ExpiresAt returns the absolute deadline, or the zero time for entries
// without a TTL.
func (e *Entry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(e.TTL)
}

// Clone returns a deep copy. Tiers store and return clones so a reader
// can never observe bytes from a concurrent writer.
func (e *Entry) Clone() *Entry {
	c := &Entry{
		Key:       cloneBytes(e.Key),
		Value:     cloneBytes(e.Value),
		CreatedAt: e.CreatedAt,
		TTL:       e.TTL,
	}
	if len(e.Tags) > 0 {
		c.Tags = make([]string, len(e.Tags))
		copy(c.Tags, e.Tags)
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
