package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a token bucket shared by every process using the same key.
type RedisLimiter struct {
	client *redis.Client
	key    string
	rate   float64 // tokens per second
	burst  int
	script *redis.Script
}

// KEYS[1] bucket key; ARGV rate, burst, now (seconds). Returns 1 when a token was taken.
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call('HMGET', key, 'tokens', 'last_update')
local tokens = tonumber(data[1])
local last_update = tonumber(data[2])

if not tokens then
    tokens = burst
    last_update = now
end

tokens = math.min(burst, tokens + math.max(0, now - last_update) * rate)

local allowed = 0
if tokens >= 1.0 then
    tokens = tokens - 1.0
    allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
redis.call('EXPIRE', key, 3600)
return allowed
`

// NewRedisLimiter creates a limiter whose bucket lives at rate_limit:llm:<name>.
func NewRedisLimiter(client *redis.Client, name string, reqPerMinute float64, burst int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		key:    "rate_limit:llm:" + name,
		rate:   reqPerMinute / 60.0,
		burst:  defaultBurst(reqPerMinute, burst),
		script: redis.NewScript(tokenBucketScript),
	}
}

// Wait polls the bucket at the refill interval until a token is available.
func (l *RedisLimiter) Wait(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / l.rate)
	for {
		ok, err := l.Allow(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Allow takes a token if one is available.
func (l *RedisLimiter) Allow(ctx context.Context) (bool, error) {
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	n, err := l.script.Run(ctx, l.client, []string{l.key}, l.rate, l.burst, now).Int()
	if err != nil {
		return false, fmt.Errorf("token bucket script: %w", err)
	}
	return n == 1, nil
}

// Reset drops the bucket state.
func (l *RedisLimiter) Reset(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}
