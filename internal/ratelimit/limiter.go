// Package ratelimit provides a Redis-backed per-credential throughput
// ceiling for deployments running multiple dispatch processes against the
// same provider accounts. A single process relies on batch pacing alone;
// the ceiling keeps concurrent runs from jointly bursting one credential
// over its per-minute allowance.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPerMinute is the per-credential sends-per-minute allowance when
// none is configured.
const DefaultPerMinute = 60

// Lua script for an atomic check-and-increment against a minute bucket.
// Separate GET and INCRBY calls race under concurrent runs; the script
// admits and counts in one round trip.
const reserveLuaScript = `
local key = KEYS[1]
local increment = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")

if current + increment > limit then
    return {0, current}
end

local newVal = redis.call("INCRBY", key, increment)
if newVal == increment then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// Limiter admits sends under a shared per-identity minute ceiling.
type Limiter struct {
	redis         *redis.Client
	perMinute     int
	reserveScript *redis.Script
}

// New creates a limiter over an existing Redis client.
func New(client *redis.Client, perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	return &Limiter{
		redis:         client,
		perMinute:     perMinute,
		reserveScript: redis.NewScript(reserveLuaScript),
	}
}

// NewFromURL creates a limiter by connecting to Redis and verifying the
// connection.
func NewFromURL(redisURL string, perMinute int) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return New(client, perMinute), nil
}

// Reserve atomically admits n sends for identity in the current minute
// window. Returns zero when admitted, otherwise how long to wait until the
// window rolls over.
func (l *Limiter) Reserve(ctx context.Context, identity string, n int) (time.Duration, error) {
	now := time.Now()
	key := fmt.Sprintf("dispatch:ceiling:%s:%d", identity, now.Unix()/60)

	// A batch larger than the allowance must still go out eventually;
	// stretch the window limit to the batch size so it is admitted alone.
	limit := l.perMinute
	if n > limit {
		limit = n
	}

	result, err := l.reserveScript.Run(ctx, l.redis,
		[]string{key},
		n,
		limit,
		120, // bucket TTL covers the window plus slack
	).Slice()
	if err != nil {
		return 0, fmt.Errorf("ceiling check failed: %w", err)
	}

	if allowed := result[0].(int64); allowed == 1 {
		return 0, nil
	}
	return time.Duration(60-now.Second()) * time.Second, nil
}

// Close closes the underlying Redis connection.
func (l *Limiter) Close() error {
	return l.redis.Close()
}
