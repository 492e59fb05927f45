package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
)

// acquireScript returns {allowed, count, pttl}.
// The counter never goes past ARGV[1] and the window starts on the first attempt.
var acquireScript = redis.NewScript(`
local window = tonumber(ARGV[2])
local current = redis.call("GET", KEYS[1])
if not current then
	redis.call("SET", KEYS[1], 1, "PX", window)
	return {1, 1, window}
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("SET", KEYS[1], 1, "PX", window)
	return {1, 1, window}
end
current = tonumber(current)
if current < tonumber(ARGV[1]) then
	current = redis.call("INCR", KEYS[1])
	return {1, current, ttl}
end
return {0, current, ttl}
`)

// RedisLimiter is a fixed-window rate limiter shared through Redis
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  Limit
}

var _ ports.RateLimiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a limiter whose keys live under walletauth:ratelimit:<scope>:
func NewRedisLimiter(client redis.UniversalClient, scope string, limit Limit) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "walletauth:ratelimit:" + scope + ":",
		limit:  limit.normalized(),
	}
}

// TryAcquire counts one attempt for key
func (l *RedisLimiter) TryAcquire(ctx context.Context, key string) (core.RateLimitDecision, error) {
	res, err := acquireScript.Run(ctx, l.client,
		[]string{l.prefix + key},
		l.limit.Max, l.limit.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return core.RateLimitDecision{}, fmt.Errorf("failed to acquire rate limit: %w", err)
	}
	if len(res) != 3 {
		return core.RateLimitDecision{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	remaining := l.limit.Max - int(res[1])
	if remaining < 0 {
		remaining = 0
	}

	return core.RateLimitDecision{
		Allowed:   res[0] == 1,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(res[2]) * time.Millisecond),
	}, nil
}
