package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterClient is the part of *redis.Client the counter needs.
type counterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateCounter is a fixed-window request counter keyed by client.
type RateCounter struct {
	client counterClient
	prefix string
}

func NewRateCounter(client *redis.Client, prefix string) *RateCounter {
	return newRateCounter(client, prefix)
}

func newRateCounter(client counterClient, prefix string) *RateCounter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RateCounter{client: client, prefix: prefix}
}

// Hit counts one request and returns the count in the current window and the
// time left until the window resets. A key left without an expiry (a failed
// EXPIRE after INCR) gets one again on the next hit.
func (c *RateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := c.prefix + key

	count, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("expire %s: %w", k, err)
		}
		return count, window, nil
	}

	ttl, err := c.client.TTL(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// no expiry on the key: start a fresh window
		if err := c.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("expire %s: %w", k, err)
		}
		ttl = window
	}
	return count, ttl, nil
}
