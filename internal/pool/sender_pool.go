package pool

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

// SenderPool caches one sender link per destination path. Releasing a sender
// only drops its active count; closing is deferred to trim or shutdown so
// bursts reuse links instead of thrashing link creation.
type SenderPool struct {
	cache     *Cache[ports.Sender]
	factories *FactoryPool
}

func NewSenderPool(cfg config.PoolConfig, factories *FactoryPool, clk ports.Clock, logger zerolog.Logger) *SenderPool {
	return &SenderPool{
		cache:     NewCache[ports.Sender]("senders", cfg.MaxSenders, cfg.TimeToLive, cfg.MaxTrimCountPerRecycle, clk, logger),
		factories: factories,
	}
}

func (p *SenderPool) Acquire(ctx context.Context, path string) (ports.Sender, error) {
	return p.cache.Acquire(path, func() (ports.Sender, error) {
		factory, err := p.factories.FindNext()
		if err != nil {
			return nil, err
		}

		return factory.CreateSender(ctx, path)
	})
}

func (p *SenderPool) Release(path string) {
	p.cache.Release(path)
}

func (p *SenderPool) Shutdown() {
	p.cache.Shutdown()
}
