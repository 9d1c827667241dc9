package partyclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how the client retries a lost connection.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

var DefaultPolicy = Policy{
	MaxAttempts:     5,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     8 * time.Second,
	Multiplier:      2,
}

// backOff returns a fresh schedule allowing MaxAttempts tries in total.
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
