package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the counter and starts the window on the first hit.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Redis shares counters between instances.
type Redis struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewRedis(client redis.Scripter, limit int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: "ratelimit:", limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := hitScript.Run(ctx, r.client, []string{r.prefix + key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("incrementing counter: %w", err)
	}

	if len(vals) != 2 {
		return Result{}, fmt.Errorf("unexpected script reply %v", vals)
	}

	resetAt := time.Now().Add(time.Duration(vals[1]) * time.Millisecond)

	return result(vals[0], r.limit, resetAt), nil
}
