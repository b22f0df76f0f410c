package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by a multiplier each attempt, with
// optional jitter to avoid thundering herds.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultExponentialBackoff returns a 1s..30s doubling backoff with jitter
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		// up to 25% random variation
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}
	return time.Duration(delay)
}

// FixedBackoff waits the same delay before every retry
type FixedBackoff struct {
	Delay time.Duration
}

func (b *FixedBackoff) NextDelay(int) time.Duration {
	return b.Delay
}
