package pool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/domain"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

// ErrShutDown is returned by Acquire once the cache has been shut down.
var ErrShutDown = errors.New("entity cache is shut down")

type (
	// Entity is the capability every cached value must expose. Close must be
	// safe to call on an already closed entity.
	Entity interface {
		IsClosed() bool
		Close() error
	}

	entry[T Entity] struct {
		entity      T
		hasEntity   bool
		lastUsed    time.Time
		activeCount int
		path        string
	}

	// Cache is a capacity-bounded, TTL-evicting cache keyed by queue path.
	// All structural mutations happen under one mutex; entries are never
	// handed out while the map is being changed.
	Cache[T Entity] struct {
		mu          sync.Mutex
		entries     map[string]*entry[T]
		capacity    int
		ttl         time.Duration
		maxTrim     int
		countActive bool
		shutdown    bool
		clock       ports.Clock
		logger      zerolog.Logger
	}
)

func NewCache[T Entity](name string, capacity int, ttl time.Duration, maxTrim int, clk ports.Clock, logger zerolog.Logger) *Cache[T] {
	return &Cache[T]{
		entries:     make(map[string]*entry[T]),
		capacity:    capacity,
		ttl:         ttl,
		maxTrim:     maxTrim,
		countActive: true,
		clock:       clk,
		logger:      logger.With().Str("component", "pool").Str("cache", name).Logger(),
	}
}

// Acquire returns the entity stored under id, creating it via create when the
// id is unseen or the stored entity has died. A trim pass runs before every
// lookup. Two concurrent acquires for the same unseen id produce one entity.
func (c *Cache[T]) Acquire(id string, create func() (T, error)) (T, error) {
	var zero T

	if id == "" {
		return zero, fmt.Errorf("%w: entity id must not be empty", domain.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return zero, ErrShutDown
	}

	c.trimLocked()

	now := c.clock.Now()

	e, ok := c.entries[id]
	if !ok {
		entity, err := create()
		if err != nil {
			return zero, fmt.Errorf("could not create entity for %q: %w", id, err)
		}

		c.entries[id] = &entry[T]{
			entity:      entity,
			hasEntity:   true,
			lastUsed:    now,
			activeCount: 1,
			path:        id,
		}

		return entity, nil
	}

	if c.countActive {
		e.activeCount++
	}
	e.lastUsed = now

	if !e.hasEntity || e.entity.IsClosed() {
		entity, err := create()
		if err != nil {
			// The caller got nothing to release, so the hold taken above
			// must not outlive this call.
			if c.countActive {
				e.activeCount--
			}

			return zero, fmt.Errorf("could not recreate entity for %q: %w", id, err)
		}

		// Replace the dead entity in place; the map key and the active
		// counter are left untouched.
		e.entity = entity
		e.hasEntity = true
	}

	return e.entity, nil
}

// Release decrements the active counter for id. Unknown ids and a shut down
// cache are no-ops; the counter never goes negative.
func (c *Cache[T]) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return
	}

	if e, ok := c.entries[id]; ok && e.activeCount > 0 {
		e.activeCount--
	}
}

// StopCountingActive disables the increment-on-hit policy. The factory pool
// flips this once all factories exist, since factories are never individually
// released.
func (c *Cache[T]) StopCountingActive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.countActive = false
}

// Shutdown closes every entry regardless of its active count and rejects all
// subsequent Acquire and Release calls.
func (c *Cache[T]) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return
	}
	c.shutdown = true

	for id, e := range c.entries {
		if !e.hasEntity {
			continue
		}

		if err := e.entity.Close(); err != nil {
			c.logger.Warn().Err(err).Str("path", id).Msg("failed to close cached entity during shutdown")
		}

		// Drop the reference even when the close failed, so a half-closed
		// entity cannot be resurrected.
		var zero T
		e.entity = zero
		e.hasEntity = false
	}
}

// Len reports the number of entries, dead ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// trimLocked evicts idle entries once the cache grew past its capacity. At
// most maxTrim entries go per pass, oldest first, and only entries that are
// live, unreferenced, and idle beyond the TTL. Entries with a positive active
// count survive regardless of idle time.
func (c *Cache[T]) trimLocked() {
	if len(c.entries) <= c.capacity {
		return
	}

	cutoff := c.clock.Now().Add(-c.ttl)

	candidates := make([]*entry[T], 0, len(c.entries))
	for _, e := range c.entries {
		if e.hasEntity && !e.entity.IsClosed() && e.activeCount == 0 && e.lastUsed.Before(cutoff) {
			candidates = append(candidates, e)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsed.Before(candidates[j].lastUsed)
	})

	if len(candidates) > c.maxTrim {
		candidates = candidates[:c.maxTrim]
	}

	for _, e := range candidates {
		if err := e.entity.Close(); err != nil {
			c.logger.Warn().Err(err).Str("path", e.path).Msg("failed to close idle entity during trim")
		}

		var zero T
		e.entity = zero
		e.hasEntity = false

		c.logger.Debug().Str("path", e.path).Msg("evicted idle entity")
	}
}
