package clock

import (
	"context"
	"time"
)

// UTC is the production clock. Sleep returns early with the context error when
// the context is cancelled, so shutdown aborts in-flight backoff waits.
type UTC struct{}

func New() UTC {
	return UTC{}
}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}

func (UTC) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
