package retry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/domain"
	"github.com/architeacher/svc-health-messenger/internal/ports"
	"github.com/architeacher/svc-health-messenger/internal/shared/backoff"
)

// Operation re-executes a unit of work on retryable transport failures using
// exponential backoff, bounded by both an attempt count and a deadline.
type Operation struct {
	strategy    backoff.Strategy
	maxAttempts int
	timeout     time.Duration
	clock       ports.Clock
	logger      zerolog.Logger
}

func New(cfg config.RetryConfig, clk ports.Clock, logger zerolog.Logger) *Operation {
	return &Operation{
		strategy:    backoff.NewExponentialStrategy(cfg.Backoff),
		maxAttempts: cfg.MaxRetryCount,
		timeout:     cfg.OperationTimeout,
		clock:       clk,
		logger:      logger.With().Str("component", "retry").Logger(),
	}
}

// Do invokes work until it succeeds, fails with a non-retryable error, exhausts
// the attempt budget, or the computed backoff no longer fits before the
// deadline. The work must be safe to re-invoke.
func (o *Operation) Do(ctx context.Context, work func(context.Context) error) error {
	deadline := o.clock.Now().Add(o.timeout)
	attempt := 0

	for {
		err := work(ctx)
		if err == nil {
			return nil
		}

		kind := Classify(err)
		if !IsRetryable(kind) {
			return wrapKind(err, kind)
		}

		attempt++
		if attempt > o.maxAttempts {
			return wrapKind(err, kind)
		}

		delay := o.strategy.Backoff(attempt)
		if remaining := deadline.Sub(o.clock.Now()); delay >= remaining {
			return wrapKind(err, kind)
		}

		o.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("kind", kind.String()).
			Dur("backoff", delay).
			Msg("retrying transport operation")

		if sleepErr := o.clock.Sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
}

// Value is Do for work producing a result.
func Value[T any](ctx context.Context, o *Operation, work func(context.Context) (T, error)) (T, error) {
	var result T

	err := o.Do(ctx, func(ctx context.Context) error {
		v, workErr := work(ctx)
		if workErr == nil {
			result = v
		}

		return workErr
	})

	return result, err
}

func wrapKind(err error, kind domain.Kind) error {
	var msgErr *domain.MessagingError
	if errors.As(err, &msgErr) {
		return err
	}

	return domain.NewMessagingError(domain.EventRetry, kind, "transport operation failed", err)
}
