package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// RateLimiter provides Redis-backed fixed window rate limiting per client IP,
// or per user for authenticated callers when a user limit is set.
type RateLimiter struct {
	rdb       *redis.Client
	prefix    string
	maxReqs   int
	userMax   int
	windowSec int
}

// NewRateLimiter creates a rate limiter. Keys are namespaced by prefix so
// several limiters can share one Redis.
func NewRateLimiter(rdb *redis.Client, prefix string, maxReqs, windowSec int) *RateLimiter {
	return &RateLimiter{
		rdb:       rdb,
		prefix:    prefix,
		maxReqs:   maxReqs,
		windowSec: windowSec,
	}
}

// PerUser gives authenticated callers their own bucket of maxReqs per window.
// The user id is read from locals, so an auth middleware must run first.
func (rl *RateLimiter) PerUser(maxReqs int) *RateLimiter {
	rl.userMax = maxReqs
	return rl
}

// bucket picks the key and limit for the caller.
func (rl *RateLimiter) bucket(c fiber.Ctx) (string, int) {
	if uid := UserID(c); uid > 0 && rl.userMax > 0 {
		return fmt.Sprintf("ratelimit:%s:user:%d", rl.prefix, uid), rl.userMax
	}
	return fmt.Sprintf("ratelimit:%s:ip:%s", rl.prefix, c.IP()), rl.maxReqs
}

// Handler returns a Fiber middleware handler for rate limiting.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if rl.rdb == nil {
			return c.Next()
		}
		key, limit := rl.bucket(c)
		if limit <= 0 {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			slog.Warn("rate limiter unavailable", "error", err)
			return c.Next()
		}

		// Set expiry on first request in the window
		if count == 1 {
			rl.rdb.Expire(ctx, key, time.Duration(rl.windowSec)*time.Second)
		}

		ttl, err := rl.rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = time.Duration(rl.windowSec) * time.Second
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(limit)-count), 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if int(count) > limit {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": int(ttl.Seconds()),
			})
		}

		return c.Next()
	}
}
