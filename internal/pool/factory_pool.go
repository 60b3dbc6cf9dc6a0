package pool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

// FactoryBuilder constructs the link factory stored under a pool slot name.
// Injected at construction so tests can substitute the transport.
type FactoryBuilder func(name string) (ports.LinkFactory, error)

// FactoryPool round-robins across a small fixed set of connection-backed link
// factories, materializing each lazily on its first round.
type FactoryPool struct {
	mu    sync.Mutex
	cache *Cache[ports.LinkFactory]
	build FactoryBuilder
	max   int
	next  int
	ready []bool
}

func NewFactoryPool(cfg config.PoolConfig, build FactoryBuilder, clk ports.Clock, logger zerolog.Logger) *FactoryPool {
	return &FactoryPool{
		cache: NewCache[ports.LinkFactory]("factories", cfg.MaxFactories, cfg.TimeToLive, cfg.MaxTrimCountPerRecycle, clk, logger),
		build: build,
		max:   cfg.MaxFactories,
		ready: make([]bool, cfg.MaxFactories),
	}
}

// FindNext advances the round-robin index and returns the factory for that
// slot. Factories are long-lived and never individually released, so once
// every slot has materialized a factory the cache stops counting hits against
// them. A slot whose build failed does not count as materialized.
func (p *FactoryPool) FindNext() (ports.LinkFactory, error) {
	p.mu.Lock()
	index := p.next
	p.next = (p.next + 1) % p.max
	p.mu.Unlock()

	name := fmt.Sprintf("Factory%d", index)

	factory, err := p.cache.Acquire(name, func() (ports.LinkFactory, error) {
		return p.build(name)
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if !p.ready[index] {
		p.ready[index] = true

		materialized := 0
		for _, ok := range p.ready {
			if ok {
				materialized++
			}
		}

		if materialized == p.max {
			p.cache.StopCountingActive()
		}
	}
	p.mu.Unlock()

	return factory, nil
}

func (p *FactoryPool) Shutdown() {
	p.cache.Shutdown()
}
