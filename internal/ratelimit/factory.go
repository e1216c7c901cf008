package ratelimit

import (
	"fmt"
	"time"

	"github.com/akio-byte/navaltutka/internal/storage"
)

// NewLimiter picks the counter backend. "memory" (the default) keeps state
// local to this process.
func NewLimiter(redis *storage.RedisClient, backend string, limit int, window time.Duration) (Limiter, error) {
	switch backend {
	case "memory", "":
		return NewFixedWindow(limit, window), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("redis rate limit backend requires a redis client")
		}
		return NewRedisFixedWindow(redis, limit, window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", backend)
	}
}
