package queue

import (
	"math"
	"time"
)

const (
	BackoffExponential = "exponential"
	BackoffFixed       = "fixed"
)

// Backoff computes the delay before a retry attempt.
type Backoff struct {
	Type     string
	Delay    time.Duration
	MaxDelay time.Duration
}

// NextDelay returns the delay for a given attempt (1-based) with clamping.
func (b Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Delay
	if base <= 0 {
		base = 5 * time.Second
	}

	d := base
	if b.Type != BackoffFixed {
		d = time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
