package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
)

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envutil.Bool("RATE_LIMIT_ENABLED", true),
		Capacity:       envutil.Int("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envutil.Int("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envutil.Seconds("RATE_LIMIT_REFILL_INTERVAL_SECONDS", 30*time.Second),
		TTL:            envutil.Seconds("RATE_LIMIT_TTL_SECONDS", 10*time.Minute),
		Prefix:         envutil.String("RATE_LIMIT_PREFIX", "bloom:rl"),
	}
	return cfg.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	if c.Prefix == "" {
		c.Prefix = "bloom:rl"
	}
	return c
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Config() RateLimitConfig
}

// tokenBucketScript refills in whole intervals and takes one token per call.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = goredis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + (intervals * refill_tokens))
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = interval_ms - (now_ms - last_refill)
  if retry_after_ms < 0 then retry_after_ms = 0 end
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

type tokenBucket struct {
	rdb goredis.Scripter
	cfg RateLimitConfig
	now func() time.Time
}

func NewRateLimiter(rdb goredis.Scripter, cfg RateLimitConfig) RateLimiter {
	return &tokenBucket{rdb: rdb, cfg: cfg.normalized(), now: time.Now}
}

func (l *tokenBucket) Config() RateLimitConfig { return l.cfg }

func (l *tokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	out := Decision{Allowed: true, Limit: l.cfg.Capacity, Remaining: l.cfg.Capacity}
	if !l.cfg.Enabled || l.rdb == nil {
		return out, nil
	}
	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{l.cfg.Prefix + ":" + key},
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Result()
	if err != nil {
		return out, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return out, fmt.Errorf("ratelimit: unexpected script result %#v", vals)
	}
	out.Allowed = asInt64(arr[0]) == 1
	out.Remaining = int(asInt64(arr[1]))
	out.RetryAfter = time.Duration(asInt64(arr[2])) * time.Millisecond
	return out, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
