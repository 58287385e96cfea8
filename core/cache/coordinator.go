package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchktools/fast-gateway/core/metrics"
	"github.com/searchktools/fast-gateway/core/pools"
)

// TierConfig places one tier in the chain. MaxTTL caps how long this
// tier may hold an entry; zero means the entry's own TTL applies
// unchanged. A fast tier typically caps lower than the shared tier.
type TierConfig struct {
	Tier   Tier
	MaxTTL time.Duration
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// Tiers in probe order, fastest first. At least one is required.
	Tiers []TierConfig

	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// SweepInterval between background reclaims of expired entries.
	// Zero disables the sweep.
	SweepInterval time.Duration

	// AsyncWriters sizes the pool propagating writes to slower tiers.
	AsyncWriters int

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Coordinator manages the ordered tier chain: read-through with
// promotion, synchronous writes to the fastest tier with best-effort
// asynchronous propagation to slower tiers, and tag-based
// invalidation. It is the only shared mutable state on the request
// path and is safe for concurrent use; synchronization is per key
// inside the tiers, never a global lock.
type Coordinator struct {
	tiers   []TierConfig
	index   *tagIndex
	writers *pools.WorkerPool
	metrics *metrics.Collector
	logger  *slog.Logger

	defaultTTL    time.Duration
	sweepInterval time.Duration
	stopSweep     context.CancelFunc
	sweepDone     chan struct{}
}

// NewCoordinator builds a coordinator. Call Close when done to stop
// the sweep loop and the writer pool.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if len(cfg.Tiers) == 0 {
		return nil, errors.New("cache: at least one tier is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNopCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	c := &Coordinator{
		tiers:         cfg.Tiers,
		index:         newTagIndex(),
		writers:       pools.NewWorkerPool(cfg.AsyncWriters),
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		defaultTTL:    cfg.DefaultTTL,
		sweepInterval: cfg.SweepInterval,
	}

	if c.sweepInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.stopSweep = cancel
		c.sweepDone = make(chan struct{})
		go c.sweepLoop(ctx)
	}
	return c, nil
}

// Get probes the tiers fastest-first. A hit at tier i is promoted into
// tiers 0..i-1 before the value is returned, so the promotion is
// ordered strictly after the read that triggered it. An unreachable
// tier is skipped; an expired entry is never a hit. The returned slice
// is the caller's to keep.
func (c *Coordinator) Get(ctx context.Context, key []byte) ([]byte, bool) {
	now := time.Now()
	for i, tc := range c.tiers {
		e, err := tc.Tier.Get(ctx, key)
		if err != nil {
			c.metrics.TierError(tc.Tier.Name(), "get")
			c.logger.Debug("tier read failed, falling through",
				"tier", tc.Tier.Name(), "err", err)
			continue
		}
		if e == nil || e.Expired(now) {
			continue
		}

		c.metrics.CacheHit(tc.Tier.Name())
		c.promote(ctx, e, i)
		return e.Value, true
	}
	c.metrics.CacheMiss()
	return nil, false
}

// promote copies a hit from tier i into every faster tier, preserving
// the entry's original creation time so its deadline is unchanged.
func (c *Coordinator) promote(ctx context.Context, e *Entry, hitTier int) {
	for j := 0; j < hitTier; j++ {
		tc := c.tiers[j]
		clone := e.Clone()
		clone.TTL = capTTL(clone.TTL, tc.MaxTTL)
		if err := tc.Tier.Set(ctx, clone); err != nil {
			c.metrics.TierError(tc.Tier.Name(), "promote")
			c.logger.Debug("promotion write failed",
				"tier", tc.Tier.Name(), "err", err)
		}
	}
}

// Set stores value under key in every tier: synchronously in the
// fastest, asynchronously (fire-and-forget, bounded by the writer
// pool) in the slower ones. Slower-tier writes are a sharing
// optimization, not a correctness requirement — a propagation failure
// is logged and counted, never surfaced. A zero ttl falls back to the
// coordinator default.
func (c *Coordinator) Set(ctx context.Context, key, value []byte, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &Entry{
		Key:       cloneBytes(key),
		Value:     cloneBytes(value),
		CreatedAt: time.Now(),
		TTL:       ttl,
		Tags:      tags,
	}
	c.index.add(tags, string(e.Key), e.ExpiresAt())

	first := c.tiers[0]
	firstCopy := e.Clone()
	firstCopy.TTL = capTTL(firstCopy.TTL, first.MaxTTL)
	if err := first.Tier.Set(ctx, firstCopy); err != nil {
		c.metrics.TierError(first.Tier.Name(), "set")
		c.logger.Warn("fast-tier write failed", "tier", first.Tier.Name(), "err", err)
	}

	if len(c.tiers) == 1 {
		return
	}
	// Detach from request cancellation: an in-flight propagation
	// completes even when the client is gone, keeping tiers consistent.
	detached := context.WithoutCancel(ctx)
	for _, tc := range c.tiers[1:] {
		tc := tc
		clone := e.Clone()
		clone.TTL = capTTL(clone.TTL, tc.MaxTTL)
		c.writers.Submit(func() {
			if err := tc.Tier.Set(detached, clone); err != nil {
				c.metrics.TierError(tc.Tier.Name(), "set")
				c.logger.Warn("slow-tier write failed", "tier", tc.Tier.Name(), "err", err)
			}
		})
	}
}

// InvalidateTag removes every entry tagged with tag from every tier
// and clears the tag's key set, returning the number of entries
// removed.
func (c *Coordinator) InvalidateTag(ctx context.Context, tag string) int {
	keys := c.index.keys(tag)
	removed := 0
	for _, k := range keys {
		if c.deleteEverywhere(ctx, []byte(k)) {
			removed++
		}
		c.index.removeKey(k)
	}
	c.index.clearTag(tag)
	c.metrics.Invalidation("tag", removed)
	return removed
}

// InvalidateKey removes a single key from every tier, reporting
// whether any tier held it.
func (c *Coordinator) InvalidateKey(ctx context.Context, key []byte) bool {
	removed := c.deleteEverywhere(ctx, key)
	c.index.removeKey(string(key))
	if removed {
		c.metrics.Invalidation("key", 1)
	}
	return removed
}

// deleteEverywhere fans the delete out to every tier in parallel.
// Tier failures are logged; an unreachable tier cannot veto an
// invalidation.
func (c *Coordinator) deleteEverywhere(ctx context.Context, key []byte) bool {
	results := make([]bool, len(c.tiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tc := range c.tiers {
		i, tc := i, tc
		g.Go(func() error {
			ok, err := tc.Tier.Delete(gctx, key)
			if err != nil {
				c.metrics.TierError(tc.Tier.Name(), "delete")
				c.logger.Warn("tier delete failed", "tier", tc.Tier.Name(), "err", err)
				return nil
			}
			results[i] = ok
			return nil
		})
	}
	g.Wait()

	for _, ok := range results {
		if ok {
			return true
		}
	}
	return false
}

// Sweep reclaims expired entries from every sweepable tier and prunes
// expired index rows. It is called by the background loop and directly
// by tests.
func (c *Coordinator) Sweep(now time.Time) int {
	removed := 0
	for _, tc := range c.tiers {
		if sw, ok := tc.Tier.(Sweeper); ok {
			removed += sw.SweepExpired(now)
		}
	}
	c.index.sweep(now)
	if removed > 0 {
		c.metrics.Swept(removed)
	}
	return removed
}

func (c *Coordinator) sweepLoop(ctx context.Context) {
	defer close(c.sweepDone)
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := c.Sweep(now); n > 0 {
				c.logger.Debug("sweep reclaimed expired entries", "count", n)
			}
		}
	}
}

// Tiers returns the configured tier chain.
func (c *Coordinator) Tiers() []TierConfig { return c.tiers }

// Close stops the sweep loop and the async writer pool. Pending
// propagation tasks drain first.
func (c *Coordinator) Close() {
	if c.stopSweep != nil {
		c.stopSweep()
		<-c.sweepDone
	}
	c.writers.Close()
}

func capTTL(ttl, max time.Duration) time.Duration {
	if max > 0 && (ttl <= 0 || ttl > max) {
		return max
	}
	return ttl
}
