package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/domain"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

type fakeSender struct {
	mu     sync.Mutex
	path   string
	closed bool
	sent   int
}

func (s *fakeSender) Path() string { return s.path }

func (s *fakeSender) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *fakeSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *fakeSender) Send(_ context.Context, _ *domain.WireMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent++

	return nil
}

type fakeReceiver struct {
	mu     sync.Mutex
	path   string
	closed bool
	credit int
}

func (r *fakeReceiver) Path() string { return r.path }

func (r *fakeReceiver) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

func (r *fakeReceiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}

func (r *fakeReceiver) Receive(ctx context.Context) (ports.ReceivedMessage, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

type fakeLinkFactory struct {
	mu        sync.Mutex
	name      string
	closed    bool
	senders   []*fakeSender
	receivers []*fakeReceiver
}

func (f *fakeLinkFactory) Name() string { return f.name }

func (f *fakeLinkFactory) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func (f *fakeLinkFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeLinkFactory) CreateSender(_ context.Context, path string) (ports.Sender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sender := &fakeSender{path: path}
	f.senders = append(f.senders, sender)

	return sender, nil
}

func (f *fakeLinkFactory) CreateReceiver(_ context.Context, path string, credit int) (ports.Receiver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	receiver := &fakeReceiver{path: path, credit: credit}
	f.receivers = append(f.receivers, receiver)

	return receiver, nil
}

func (f *fakeLinkFactory) CreateMessage(payload []byte) *domain.WireMessage {
	return &domain.WireMessage{Payload: payload, Headers: map[string]any{}}
}

func testPoolConfig(maxFactories int) config.PoolConfig {
	return config.PoolConfig{
		TimeToLive:             2 * time.Minute,
		MaxTrimCountPerRecycle: 32,
		MaxFactories:           maxFactories,
		MaxSenders:             64,
		MaxReceivers:           64,
		LinkCredits:            25,
	}
}

func TestFactoryPoolRoundRobinIsFair(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		builds []string
	)
	build := func(name string) (ports.LinkFactory, error) {
		mu.Lock()
		builds = append(builds, name)
		mu.Unlock()

		return &fakeLinkFactory{name: name}, nil
	}

	p := NewFactoryPool(testPoolConfig(3), build, newFakeClock(), zerolog.Nop())

	counts := map[string]int{}
	for i := 0; i < 9; i++ {
		factory, err := p.FindNext()
		require.NoError(t, err)

		counts[factory.Name()]++
	}

	assert.Equal(t, map[string]int{"Factory0": 3, "Factory1": 3, "Factory2": 3}, counts)
	assert.Len(t, builds, 3, "each slot is materialized exactly once")
}

func TestFactoryPoolBuildFailureDoesNotStickToSlot(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial failed")
	attempts := 0
	build := func(name string) (ports.LinkFactory, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}

		return &fakeLinkFactory{name: name}, nil
	}

	p := NewFactoryPool(testPoolConfig(2), build, newFakeClock(), zerolog.Nop())

	_, err := p.FindNext()
	assert.ErrorIs(t, err, boom)

	// The index advanced past the failed slot; both remaining calls succeed
	// and the failed slot is rebuilt when its turn comes around again.
	second, err := p.FindNext()
	require.NoError(t, err)
	assert.Equal(t, "Factory1", second.Name())

	retried, err := p.FindNext()
	require.NoError(t, err)
	assert.Equal(t, "Factory0", retried.Name())
}

// countingActive peeks at the hit-counting flag under the cache lock.
func countingActive(p *FactoryPool) bool {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()

	return p.cache.countActive
}

func TestFactoryPoolBuildFailureDoesNotCountSlotAsVisited(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial failed")
	failFirst := true
	build := func(name string) (ports.LinkFactory, error) {
		if name == "Factory1" && failFirst {
			failFirst = false

			return nil, boom
		}

		return &fakeLinkFactory{name: name}, nil
	}

	p := NewFactoryPool(testPoolConfig(2), build, newFakeClock(), zerolog.Nop())

	first, err := p.FindNext()
	require.NoError(t, err)
	assert.Equal(t, "Factory0", first.Name())

	_, err = p.FindNext()
	assert.ErrorIs(t, err, boom)

	// Revisiting the materialized slot is a hit, not a new materialization.
	_, err = p.FindNext()
	require.NoError(t, err)
	assert.True(t, countingActive(p), "hits keep counting until every slot holds a factory")

	retried, err := p.FindNext()
	require.NoError(t, err)
	assert.Equal(t, "Factory1", retried.Name())
	assert.False(t, countingActive(p))
}

func TestFactoryPoolRecreatesClosedFactory(t *testing.T) {
	t.Parallel()

	build := func(name string) (ports.LinkFactory, error) {
		return &fakeLinkFactory{name: name}, nil
	}

	p := NewFactoryPool(testPoolConfig(1), build, newFakeClock(), zerolog.Nop())

	first, err := p.FindNext()
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := p.FindNext()
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.False(t, second.IsClosed())
}

func TestFactoryPoolShutdownClosesFactories(t *testing.T) {
	t.Parallel()

	var factories []*fakeLinkFactory
	build := func(name string) (ports.LinkFactory, error) {
		f := &fakeLinkFactory{name: name}
		factories = append(factories, f)

		return f, nil
	}

	p := NewFactoryPool(testPoolConfig(2), build, newFakeClock(), zerolog.Nop())

	_, err := p.FindNext()
	require.NoError(t, err)
	_, err = p.FindNext()
	require.NoError(t, err)

	p.Shutdown()

	for _, f := range factories {
		assert.True(t, f.IsClosed())
	}

	_, err = p.FindNext()
	assert.ErrorIs(t, err, ErrShutDown)
}
