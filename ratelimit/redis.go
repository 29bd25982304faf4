package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua keeps prune+count+admit atomic for callers racing on one key.
const slidingWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now_ms - window_ms)
local count = redis.call("ZCARD", key)

if count < limit then
  redis.call("ZADD", key, now_ms, member)
  redis.call("PEXPIRE", key, window_ms + 1000)
  return {1, limit - count - 1, now_ms + window_ms, 0}
end

local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local reset = now_ms + window_ms
if oldest[2] then
  reset = tonumber(oldest[2]) + window_ms
end
local retry = reset - now_ms
if retry < 1 then
  retry = 1
end
return {0, 0, reset, retry}
`

const tokenBucketScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local rate = limit / window_ms

local tokens = tonumber(redis.call("HGET", key, "tokens"))
local last = tonumber(redis.call("HGET", key, "last_refill"))
if not tokens then tokens = limit end
if not last then last = now_ms end

local elapsed = now_ms - last
if elapsed > 0 then
  tokens = tokens + elapsed * rate
  if tokens > limit then tokens = limit end
end

local allowed = 0
local retry = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry = math.ceil((1 - tokens) / rate)
  if retry < 1 then retry = 1 end
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now_ms))
redis.call("PEXPIRE", key, window_ms * 2)

local reset = now_ms + window_ms
if allowed == 0 then
  reset = now_ms + retry
end
return {allowed, math.floor(tokens), reset, retry}
`

var (
	slidingWindowLua = redis.NewScript(slidingWindowScript)
	tokenBucketLua   = redis.NewScript(tokenBucketScript)
)

// RedisBackend enforces limits in Redis so every instance of the
// service shares one budget per key. Sliding-window and token-bucket
// state changes run as Lua scripts; fixed windows use a plain
// INCR+PEXPIRE pipeline.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend wraps a Redis client. prefix namespaces every key
// the backend touches.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "arl"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + ":" + key
}

// Check runs the limit's strategy against Redis state.
func (b *RedisBackend) Check(ctx context.Context, key string, limit Limit, now time.Time) (Result, error) {
	if err := limit.Validate(); err != nil {
		return Result{}, err
	}

	switch limit.Strategy {
	case TokenBucket:
		return b.runScript(ctx, tokenBucketLua, b.key(key), limit, now, nil)
	case FixedWindow:
		return b.fixedWindow(ctx, b.key(key), limit, now)
	default:
		member := uuid.NewString()
		return b.runScript(ctx, slidingWindowLua, b.key(key), limit, now, []interface{}{member})
	}
}

func (b *RedisBackend) runScript(
	ctx context.Context,
	script *redis.Script,
	key string,
	limit Limit,
	now time.Time,
	extraArgs []interface{},
) (Result, error) {
	args := []interface{}{limit.Requests, limit.Window.Milliseconds(), now.UnixMilli()}
	args = append(args, extraArgs...)

	raw, err := script.Run(ctx, b.client, []string{key}, args...).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	fields, ok := raw.([]interface{})
	if !ok || len(fields) != 4 {
		return Result{}, fmt.Errorf("%w: unexpected script reply %T", ErrBackendUnavailable, raw)
	}

	allowed, _ := fields[0].(int64)
	remaining, _ := fields[1].(int64)
	resetMs, _ := fields[2].(int64)
	retryMs, _ := fields[3].(int64)

	result := Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   time.UnixMilli(resetMs),
	}
	if !result.Allowed {
		result.RetryAfter = time.Duration(retryMs) * time.Millisecond
	}
	return result, nil
}

func (b *RedisBackend) fixedWindow(ctx context.Context, key string, limit Limit, now time.Time) (Result, error) {
	idx := now.UnixMilli() / limit.Window.Milliseconds()
	windowKey := fmt.Sprintf("%s:%d", key, idx)

	var incr *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.PExpire(ctx, windowKey, limit.Window)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	count := int(incr.Val())
	reset := time.UnixMilli((idx + 1) * limit.Window.Milliseconds())
	remaining := limit.Requests - count
	if remaining < 0 {
		remaining = 0
	}

	if count <= limit.Requests {
		return Result{Allowed: true, Remaining: remaining, ResetAt: reset}, nil
	}

	retry := reset.Sub(now)
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Result{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    reset,
		RetryAfter: retry,
	}, nil
}
