package pool

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

// ReceiverPool caches one receiver link per source path, each created with the
// configured link credit.
type ReceiverPool struct {
	cache     *Cache[ports.Receiver]
	factories *FactoryPool
	credit    int
}

func NewReceiverPool(cfg config.PoolConfig, factories *FactoryPool, clk ports.Clock, logger zerolog.Logger) *ReceiverPool {
	return &ReceiverPool{
		cache:     NewCache[ports.Receiver]("receivers", cfg.MaxReceivers, cfg.TimeToLive, cfg.MaxTrimCountPerRecycle, clk, logger),
		factories: factories,
		credit:    cfg.LinkCredits,
	}
}

func (p *ReceiverPool) Acquire(ctx context.Context, path string) (ports.Receiver, error) {
	return p.cache.Acquire(path, func() (ports.Receiver, error) {
		factory, err := p.factories.FindNext()
		if err != nil {
			return nil, err
		}

		return factory.CreateReceiver(ctx, path, p.credit)
	})
}

func (p *ReceiverPool) Release(path string) {
	p.cache.Release(path)
}

func (p *ReceiverPool) Shutdown() {
	p.cache.Shutdown()
}
