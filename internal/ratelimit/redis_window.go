package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/akio-byte/navaltutka/internal/storage"
	"github.com/redis/go-redis/v9"
)

// RedisFixedWindowLimiter applies the same window rules as FixedWindowLimiter
// with the counter kept in redis: the key gets the window as TTL on the first
// request, so the window starts at that request.
type RedisFixedWindowLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
}

func NewRedisFixedWindow(redis *storage.RedisClient, limit int, window time.Duration) *RedisFixedWindowLimiter {
	return &RedisFixedWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
	}
}

func (f *RedisFixedWindowLimiter) key(clientKey string) string {
	return fmt.Sprintf("ratelimit:fixed:%s", clientKey)
}

// admitScript counts a request and makes sure the counter carries a TTL. A
// counter left without one (PTTL -1) would never expire.
var admitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) == -1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

func (f *RedisFixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := f.redis.RunScript(ctx, admitScript, []string{f.key(key)}, f.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}

	return count <= int64(f.limit), nil
}

func (f *RedisFixedWindowLimiter) Remaining(ctx context.Context, key string) (int, error) {
	val, err := f.redis.Get(ctx, f.key(key))
	if errors.Is(err, redis.Nil) {
		return f.limit, nil
	}
	if err != nil {
		return 0, err
	}

	count, _ := strconv.Atoi(val)
	remaining := f.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

func (f *RedisFixedWindowLimiter) Limit() int {
	return f.limit
}

func (f *RedisFixedWindowLimiter) Window() time.Duration {
	return f.window
}

func (f *RedisFixedWindowLimiter) Reset(ctx context.Context, key string) (time.Time, error) {
	ttl, err := f.redis.PTTL(ctx, f.key(key))
	if err != nil {
		return time.Time{}, err
	}
	// -2: no key, -1: no expiry
	if ttl < 0 {
		return time.Now().Add(f.window), nil
	}
	return time.Now().Add(ttl), nil
}
