package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitKeyTTL = 120 * time.Second
	rateLimitIPTTL  = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes one token atomically.
// Returns {allowed, retry_after_seconds, remaining}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(data[1]) or burst
	local ts = tonumber(data[2]) or now

	tokens = math.min(burst, tokens + (now - ts) * rate)

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'ts', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckAPIRateLimit consumes a token for an API key.
// A zero ratePerMinute means unlimited.
func (c *Cache) CheckAPIRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now().Add(time.Minute)}, nil
	}
	return c.take(ctx, key("rl", "key", keyID), float64(ratePerMinute)/60.0, burst, rateLimitKeyTTL)
}

// CheckIPRateLimit consumes a token for a client IP on public routes.
// The IP is stored hashed.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, key("rl", "ip", hashIP(ip)), float64(ratePerSecond), burst, rateLimitIPTTL)
}

// take fails open: a Redis error lets the request through.
func (c *Cache) take(ctx context.Context, k string, rate float64, burst int, ttl time.Duration) (*RateLimitResult, error) {
	now := time.Now()

	res, err := tokenBucketScript.Run(ctx, c.client, []string{k},
		rate, burst, now.Unix(), int(ttl.Seconds()),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), Limit: burst, ResetAt: now.Add(time.Minute)}, nil
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		Limit:      burst,
		ResetAt:    now.Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(res[1]) * time.Second,
	}, nil
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
