package ports

import (
	"context"
	"time"
)

// Clock supplies current UTC time and a cancellable delay, so retry timing can
// be detached from the wall clock in tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
