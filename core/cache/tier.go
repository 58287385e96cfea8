package cache

import (
	"context"
	"errors"
	"time"
)

// ErrTierUnavailable marks a tier as unreachable. It is never fatal:
// the coordinator skips the tier and falls through to the next one, or
// to the handler.
var ErrTierUnavailable = errors.New("cache: tier unavailable")

// Tier is one store in the ordered chain, fastest first. A tier owns
// its entries exclusively; Get returns (nil, nil) on a miss and must
// never return an entry past its TTL.
type Tier interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// Get returns a copy of the entry, or (nil, nil) on a miss.
	Get(ctx context.Context, key []byte) (*Entry, error)

	// Set stores a copy of the entry, replacing any previous value.
	Set(ctx context.Context, e *Entry) error

	// Delete removes the entry, reporting whether it was present.
	Delete(ctx context.Context, key []byte) (bool, error)

	// Len returns the number of stored entries.
	Len() int
}

// Sweeper is implemented by tiers that can eagerly reclaim expired
// entries. The coordinator's background sweep calls it so expired
// entries bound memory instead of lingering until the next read.
type Sweeper interface {
	SweepExpired(now time.Time) int
}
