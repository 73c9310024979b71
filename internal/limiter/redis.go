package limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter on Redis: one INCR-ed key per
// (client, window), expired by Redis itself. Shared state keeps the budget
// accurate across process restarts.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedis constructs a fixed-window limiter allowing limit requests per
// window for each client id. The prefix isolates independent gates sharing
// one Redis (e.g. the global and the sensitive-endpoint budgets).
func NewRedis(client *redis.Client, prefix string, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// windowStart truncates now to the current window boundary.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// windowKey builds the counter key for a client in a given window.
func windowKey(prefix, clientID string, start time.Time) string {
	return prefix + ":" + clientID + ":" + strconv.FormatInt(start.Unix(), 10)
}

// Allow increments the client's counter for the current window and compares
// it to the budget. The expiry is set alongside the increment so abandoned
// counters vanish one window after their last use.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, time.Duration, error) {
	now := time.Now()
	start := windowStart(now, l.window)
	key := windowKey(l.prefix, clientID, start)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("limiter incr: %w", err)
	}
	if incr.Val() > l.limit {
		retryAfter := start.Add(l.window).Sub(now)
		return false, retryAfter, nil
	}
	return true, 0, nil
}
