package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUTC_Now(t *testing.T) {
	t.Parallel()

	now := New().Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestUTC_SleepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := New().Sleep(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUTC_SleepNonPositive(t *testing.T) {
	t.Parallel()

	err := New().Sleep(context.Background(), 0)
	assert.NoError(t, err)
}
