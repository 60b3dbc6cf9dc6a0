package backoff

import (
	"math/rand"
	"time"

	"github.com/architeacher/svc-health-messenger/internal/config"
)

// maxShift caps the exponent so the 2^attempt term cannot overflow
// time.Duration; the clamp to MaxBackoff brings the result back into range.
const maxShift = 16

type (
	// Strategy defines the methodology for backing off after a transport
	// failure.
	Strategy interface {
		// Backoff returns the amount of time to wait before the next retry
		// given the number of consecutive failures.
		Backoff(attempt int) time.Duration
	}

	// Exponential implements exponential backoff with jitter around the
	// configured delta. The same computation backs both the blocking and the
	// non-blocking retry wrappers.
	Exponential struct {
		config config.BackoffConfig
	}
)

func NewExponentialStrategy(cfg config.BackoffConfig) Exponential {
	return Exponential{
		config: cfg,
	}
}

// Backoff computes min(MinBackoff + (2^attempt - 1) * jittered delta,
// MaxBackoff). The jitter draws uniformly from [0.8, 1.2] times DeltaBackoff
// to decorrelate concurrent retriers.
func (bc Exponential) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return bc.config.MinBackoff
	}

	if attempt > maxShift {
		attempt = maxShift
	}

	delta := float64(bc.config.DeltaBackoff)
	interval := delta * (0.8 + 0.4*rand.Float64())

	increment := float64(int64(1)<<uint(attempt)-1) * interval

	sleep := time.Duration(float64(bc.config.MinBackoff) + increment)
	if sleep > bc.config.MaxBackoff || sleep < 0 {
		sleep = bc.config.MaxBackoff
	}

	return sleep
}
