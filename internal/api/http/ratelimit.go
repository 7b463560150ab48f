package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter applies a fixed-window request limit per client IP and
// route, backed by Redis so the limit holds across instances. A Redis
// outage fails open: throttling is protective, not load-bearing.
type RateLimiter struct {
	client *redis.Client
	logger *zap.Logger
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter.
func NewRateLimiter(client *redis.Client, logger *zap.Logger, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, logger: logger, limit: limit, window: window}
}

// Limit returns a middleware throttling the named route.
func (rl *RateLimiter) Limit(route string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.client == nil {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", route, c.IP())
		count, err := rl.client.Incr(c.UserContext(), key).Result()
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			rl.client.Expire(c.UserContext(), key, rl.window)
		}
		if count > int64(rl.limit) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
