package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding window log. Rejected attempts are not recorded, so a client that
// keeps retrying is not locked out past the window.
//
// KEYS[1] window key
// ARGV[1] now (ms), ARGV[2] window (ms), ARGV[3] limit, ARGV[4] unique member
//
// Returns {allowed, hits in window, oldest hit score}.
const luaSlidingWindow = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local hits = redis.call('ZCARD', KEYS[1])

if hits >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  return {0, hits, tonumber(oldest[2]) or now}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, hits + 1, 0}
`

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Current    int64
	RetryAfter time.Duration
}

// SlidingWindowLimiter caps how many times an id may act within a window.
// The booking service uses it per user for reservation requests.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewSlidingWindowLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		script: redis.NewScript(luaSlidingWindow),
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for id when it fits in the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, id string) (Decision, error) {
	const op = "redis.SlidingWindowLimiter.Allow"

	now := l.now().UnixMilli()
	window := l.window.Milliseconds()

	vals, err := l.script.Run(ctx, l.rdb,
		[]string{KeyRateLimit(l.scope, id)},
		now, window, l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("%s: unexpected script reply %v", op, vals)
	}

	d := Decision{Allowed: vals[0] == 1, Current: vals[1]}
	if !d.Allowed {
		d.RetryAfter = time.Duration(max(vals[2]+window-now, 0)) * time.Millisecond
	}

	return d, nil
}
