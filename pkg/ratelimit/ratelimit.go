// Package ratelimit guards AI-oracle calls with a fixed-window counter,
// repurposing the teacher's Redis Incr/Expire attempt-limiting idiom
// (internal/services.AuthService's login-attempt lockout) into a
// per-minute request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter enforces a fixed N-requests-per-minute window per key, backed by
// Redis INCR + EXPIRE — the same two-call idiom the teacher uses for login
// attempt lockouts.
type Limiter struct {
	client       *redis.Client
	limitPerMin  int
	window       time.Duration
}

func New(client *redis.Client, limitPerMin int) *Limiter {
	return &Limiter{client: client, limitPerMin: limitPerMin, window: time.Minute}
}

// Allow reports whether one more request under key is permitted in the
// current window, incrementing the counter as a side effect.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limitPerMin <= 0 {
		return true, nil
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UTC().Unix()/int64(l.window.Seconds()))

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}

	return count <= int64(l.limitPerMin), nil
}
