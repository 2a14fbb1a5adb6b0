package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/pkg/cmap"
)

// Eviction reasons reported to Metrics.
const (
	EvictPrune      = "prune"
	EvictIdle       = "idle"
	EvictClose      = "close"
	EvictLoadFailed = "load_failed"
)

// CacheConfig holds configuration for Cache.
type CacheConfig struct {
	// Shards is the number of map shards (power of two).
	Shards int

	// MaxEntries caps the number of cached users. Zero means unlimited.
	// The cap is soft: concurrent first acquires may overshoot it briefly.
	MaxEntries int
}

// DefaultCacheConfig returns default configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{Shards: cmap.DefaultShardCount}
}

// Cache holds one reference-counted entry per canonical username.
//
// Every entry has its own mutex. Lock order is entry before shard: map
// mutations that happen while an entry is locked (eviction) take the shard
// lock inside the entry lock, and no code waits for an entry lock while
// holding a shard lock. New entries are inserted already locked by their
// creator, so concurrent acquirers of a user that is still loading block
// on the entry until the load finishes and then observe either a ready
// entry or an evicted one.
type Cache struct {
	entries *cmap.Map[*entry]
	loader  Loader
	cfg     CacheConfig
	closed  atomic.Bool
	deps
}

type entry struct {
	mu        sync.Mutex
	username  string
	refs      map[domain.Protocol]int
	payload   *domain.Payload
	loadedAt  time.Time
	touchedAt time.Time
	evicted   bool
}

// EntryStat is a point-in-time view of a cache entry.
type EntryStat struct {
	Username  string                  `json:"username"`
	Refs      map[domain.Protocol]int `json:"refs"`
	Scope     domain.Scope            `json:"scope"`
	LoadedAt  time.Time               `json:"loaded_at"`
	TouchedAt time.Time               `json:"touched_at"`
}

// TotalRefs sums the references over all protocols.
func (s EntryStat) TotalRefs() int {
	n := 0
	for _, c := range s.Refs {
		n += c
	}
	return n
}

// NewCache creates a Cache backed by loader.
func NewCache(loader Loader, cfg *CacheConfig, opts ...Option) *Cache {
	if cfg == nil {
		cfg = DefaultCacheConfig()
	}
	return &Cache{
		entries: cmap.New[*entry](cmap.WithShardCount(cfg.Shards)),
		loader:  loader,
		cfg:     *cfg,
		deps:    newDeps(opts),
	}
}

// Acquire returns a handle on the cached user, creating the entry or
// loading missing scope as needed, and takes one reference for protocol.
//
// Loads are not cancelled once started, even when ctx is: the caller that
// started a load owns it until completion. A failed load of a new entry
// releases the user from the loader and removes the entry again; a failed
// scope merge on an existing entry leaves it and its reference counts
// unchanged.
func (c *Cache) Acquire(ctx context.Context, username string, protocol domain.Protocol, scope domain.Scope) (*Handle, error) {
	if username == "" || !protocol.Valid() || !scope.Valid() {
		return nil, domain.ErrInvalidArgument.WithDetailsf("acquire %q/%s/%s", username, protocol, scope)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrInfrastructure.WithCause(err)
	}

	for {
		if c.closed.Load() {
			return nil, domain.ErrCacheClosed
		}
		if c.cfg.MaxEntries > 0 {
			if _, ok := c.entries.Get(username); !ok && c.entries.Len() >= c.cfg.MaxEntries {
				return nil, domain.ErrCacheExhausted.WithDetailsf("%d entries", c.cfg.MaxEntries)
			}
		}

		e, created := c.entries.GetOrCreate(username, func() *entry {
			e := &entry{
				username: username,
				refs:     make(map[domain.Protocol]int),
				payload:  &domain.Payload{},
			}
			// Uncontended: e is not visible to anyone else yet.
			e.mu.Lock()
			return e
		})
		if !created {
			e.mu.Lock()
			if e.evicted {
				e.mu.Unlock()
				continue
			}
		}
		// Close may have listed the keys before e was inserted.
		if c.closed.Load() {
			if created {
				c.evictLocked(e, EvictClose)
			}
			e.mu.Unlock()
			return nil, domain.ErrCacheClosed
		}

		h, err := c.acquireLocked(ctx, e, created, protocol, scope)
		e.mu.Unlock()
		return h, err
	}
}

func (c *Cache) acquireLocked(ctx context.Context, e *entry, created bool, protocol domain.Protocol, scope domain.Scope) (*Handle, error) {
	now := c.now()

	if missing := e.payload.Scope.Missing(scope); missing != 0 {
		start := now
		p, err := c.loader.Load(context.WithoutCancel(ctx), e.username, missing)
		c.metrics.ObserveLoad(missing.String(), err, c.now().Sub(start))
		if err != nil {
			if created {
				// Parts of a composite load may have succeeded.
				if rerr := c.loader.Release(context.WithoutCancel(ctx), e.username); rerr != nil {
					logger.L(ctx).Warn("release after failed load",
						"username", e.username,
						"error", rerr)
				}
				c.evictLocked(e, EvictLoadFailed)
			}
			logger.L(ctx).Warn("user load failed",
				"username", e.username,
				"scope", missing.String(),
				"error", err)
			return nil, domain.ErrInfrastructure.WithDetails("load " + missing.String()).WithCause(err)
		}
		if p != nil {
			p.Scope |= missing
		} else {
			p = &domain.Payload{Scope: missing}
		}
		e.payload.Merge(p)
		e.loadedAt = c.now()
	}

	e.refs[protocol]++
	e.touchedAt = now
	return &Handle{
		Username:   e.username,
		Protocol:   protocol,
		Scope:      e.payload.Scope,
		Payload:    e.payload.Clone(),
		AcquiredAt: now,
	}, nil
}

// evictLocked marks e evicted and removes it from the map. e.mu must be held.
func (c *Cache) evictLocked(e *entry, reason string) {
	e.evicted = true
	e.payload = nil
	c.entries.DeleteIf(e.username, func(v *entry) bool { return v == e })
	c.metrics.ObserveEviction(reason)
}

// Remove drops one reference of protocol on the cached user.
// It returns ErrNotFound when the user is not cached or holds no
// reference for protocol; counts never go negative.
func (c *Cache) Remove(username string, protocol domain.Protocol) error {
	e, ok := c.entries.Get(username)
	if !ok {
		return domain.ErrNotFound.WithDetailsf("user %q not cached", username)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return domain.ErrNotFound.WithDetailsf("user %q not cached", username)
	}
	n := e.refs[protocol]
	switch {
	case n <= 0:
		return domain.ErrNotFound.WithDetailsf("no %s reference for %q", protocol, username)
	case n == 1:
		delete(e.refs, protocol)
	default:
		e.refs[protocol] = n - 1
	}
	e.touchedAt = c.now()
	return nil
}

// Prune evicts the cached user if no references remain. It returns 1 when
// the user was evicted, 0 when it is absent or still referenced, and -1
// with ErrInfrastructure when the loader could not release it, in which
// case the entry is kept.
func (c *Cache) Prune(ctx context.Context, username string) (int, error) {
	e, ok := c.entries.Get(username)
	if !ok {
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted || len(e.refs) > 0 {
		return 0, nil
	}
	if err := c.loader.Release(ctx, username); err != nil {
		return -1, domain.ErrInfrastructure.WithDetails("release").WithCause(err)
	}
	c.evictLocked(e, EvictPrune)
	return 1, nil
}

// PruneIdle evicts every unreferenced entry untouched for at least idle.
// Release failures are collected and the entries kept.
func (c *Cache) PruneIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := c.now().Add(-idle)
	var (
		pruned int
		errs   []error
	)
	for _, username := range c.entries.Keys() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		e, ok := c.entries.Get(username)
		if !ok {
			continue
		}
		e.mu.Lock()
		if !e.evicted && len(e.refs) == 0 && !e.touchedAt.After(cutoff) {
			if err := c.loader.Release(ctx, username); err != nil {
				errs = append(errs, domain.ErrInfrastructure.WithDetails("release "+username).WithCause(err))
			} else {
				c.evictLocked(e, EvictIdle)
				pruned++
			}
		}
		e.mu.Unlock()
	}
	return pruned, errors.Join(errs...)
}

// Close stops new acquisitions and evicts every entry, including
// referenced ones. Release errors are joined and returned.
func (c *Cache) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, username := range c.entries.Keys() {
		e, ok := c.entries.Get(username)
		if !ok {
			continue
		}
		e.mu.Lock()
		if !e.evicted {
			if len(e.refs) > 0 {
				c.log.Warn("evicting referenced user on close", "username", username, "refs", len(e.refs))
			}
			if err := c.loader.Release(ctx, username); err != nil {
				errs = append(errs, err)
			}
			c.evictLocked(e, EvictClose)
		}
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Stat returns a snapshot of the cached user.
func (c *Cache) Stat(username string) (EntryStat, bool) {
	e, ok := c.entries.Get(username)
	if !ok {
		return EntryStat{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return EntryStat{}, false
	}
	refs := make(map[domain.Protocol]int, len(e.refs))
	for p, n := range e.refs {
		refs[p] = n
	}
	return EntryStat{
		Username:  e.username,
		Refs:      refs,
		Scope:     e.payload.Scope,
		LoadedAt:  e.loadedAt,
		TouchedAt: e.touchedAt,
	}, true
}

// Len returns the number of cached users.
func (c *Cache) Len() int {
	return c.entries.Len()
}
