package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/domain"
)

type stubClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *stubClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()

	return ctx.Err()
}

func (c *stubClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sleeps)
}

func testRetryConfig(maxRetries int, timeout time.Duration) config.RetryConfig {
	return config.RetryConfig{
		Backoff: config.BackoffConfig{
			MinBackoff:   time.Millisecond,
			MaxBackoff:   50 * time.Millisecond,
			DeltaBackoff: time.Millisecond,
		},
		MaxRetryCount:    maxRetries,
		OperationTimeout: timeout,
	}
}

func TestOperationSucceedsWithoutRetrying(t *testing.T) {
	t.Parallel()

	clk := newStubClock()
	o := New(testRetryConfig(3, time.Hour), clk, zerolog.Nop())

	calls := 0
	err := o.Do(context.Background(), func(context.Context) error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, clk.sleepCount())
}

func TestOperationFailsFastOnNonRetryableError(t *testing.T) {
	t.Parallel()

	clk := newStubClock()
	o := New(testRetryConfig(3, time.Hour), clk, zerolog.Nop())

	calls := 0
	err := o.Do(context.Background(), func(context.Context) error {
		calls++

		return &amqp.Error{Code: amqp.NotFound, Reason: "no such queue"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "fatal errors get exactly one attempt")
	assert.Zero(t, clk.sleepCount())

	var msgErr *domain.MessagingError
	require.ErrorAs(t, err, &msgErr)
	assert.Equal(t, domain.KindNotFound, msgErr.Kind)
	assert.False(t, msgErr.Retryable())
}

func TestOperationRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	clk := newStubClock()
	o := New(testRetryConfig(5, time.Hour), clk, zerolog.Nop())

	calls := 0
	err := o.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, clk.sleepCount())
}

func TestOperationExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	clk := newStubClock()
	o := New(testRetryConfig(2, time.Hour), clk, zerolog.Nop())

	calls := 0
	err := o.Do(context.Background(), func(context.Context) error {
		calls++

		return &amqp.Error{Code: amqp.InternalError, Reason: "overloaded"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus the configured retries")

	var msgErr *domain.MessagingError
	require.ErrorAs(t, err, &msgErr)
	assert.Equal(t, domain.KindServerBusy, msgErr.Kind)
}

func TestOperationHonorsDeadline(t *testing.T) {
	t.Parallel()

	clk := newStubClock()

	// A zero timeout leaves no room for any backoff; the first retryable
	// failure is terminal even though the attempt budget allows more.
	o := New(testRetryConfig(10, 0), clk, zerolog.Nop())

	calls := 0
	err := o.Do(context.Background(), func(context.Context) error {
		calls++

		return &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, clk.sleepCount())
}

func TestOperationStopsWhenSleepIsCancelled(t *testing.T) {
	t.Parallel()

	clk := newStubClock()
	o := New(testRetryConfig(5, time.Hour), clk, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := o.Do(ctx, func(context.Context) error {
		calls++
		cancel()

		return &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestValueReturnsResultOnSuccess(t *testing.T) {
	t.Parallel()

	clk := newStubClock()
	o := New(testRetryConfig(5, time.Hour), clk, zerolog.Nop())

	calls := 0
	result, err := Value(context.Background(), o, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
		}

		return "queue-address", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "queue-address", result)
	assert.Equal(t, 2, calls)
}
