package ratelimit

import (
	"context"
	"time"
)

// Limiter admits or rejects requests per client key.
type Limiter interface {
	// Allow counts one request for key and reports whether it is within quota.
	Allow(ctx context.Context, key string) (bool, error)

	Remaining(ctx context.Context, key string) (int, error)

	Limit() int

	Window() time.Duration

	// Reset returns the time at which the current window for key ends.
	Reset(ctx context.Context, key string) (time.Time, error)
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time
