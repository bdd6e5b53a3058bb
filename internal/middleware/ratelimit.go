package middleware

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Limits holds the per-client request quotas.
type Limits struct {
	PerSecond int
	PerDay    int
}

// LoadLimitsFromEnv loads rate limits from environment variables
func LoadLimitsFromEnv() Limits {
	perSecond, _ := strconv.Atoi(getEnv("RATE_LIMIT_PER_SECOND", "10"))
	perDay, _ := strconv.Atoi(getEnv("RATE_LIMIT_PER_DAY", "10000"))
	return Limits{PerSecond: perSecond, PerDay: perDay}
}

// RateLimitMiddleware implements per-IP rate limiting backed by Redis
// counters. It checks limits per second and per day; a nil client disables
// limiting entirely.
func RateLimitMiddleware(rdb *redis.Client, limits Limits) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil {
			return c.Next()
		}

		ctx := context.Background()
		now := time.Now()
		ip := c.IP()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
		keyDay := fmt.Sprintf("rl:ip:%s:day:%s", ip, now.Format("2006-01-02"))

		// Check per-second rate limit
		if limits.PerSecond > 0 {
			countSecond, err := rdb.Incr(ctx, keySecond).Result()
			if err == nil {
				rdb.Expire(ctx, keySecond, 2*time.Second)

				if countSecond > int64(limits.PerSecond) {
					c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
					c.Set("X-RateLimit-Remaining-Second", "0")
					c.Set("Retry-After", "1")

					return c.Status(429).JSON(fiber.Map{
						"error":       "rate_limit_exceeded",
						"message":     "Too many requests per second",
						"limit_type":  "per_second",
						"limit":       limits.PerSecond,
						"retry_after": 1,
					})
				}
			}
		}

		// Check per-day rate limit
		if limits.PerDay > 0 {
			countDay, err := rdb.Incr(ctx, keyDay).Result()
			if err == nil {
				// 25 hours to handle timezone differences
				rdb.Expire(ctx, keyDay, 25*time.Hour)

				if countDay > int64(limits.PerDay) {
					tomorrow := now.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
					retryAfter := int64(midnight.Sub(now).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))
					c.Set("X-RateLimit-Remaining-Day", "0")
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

					return c.Status(429).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"message":     "Daily quota exceeded",
						"limit_type":  "per_day",
						"limit":       limits.PerDay,
						"used":        countDay,
						"retry_after": retryAfter,
						"reset_at":    midnight.Format(time.RFC3339),
					})
				}

				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(limits.PerDay)-countDay, 10))
			}
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))

		return c.Next()
	}
}

// ResetRateLimit resets the counters for one client IP (admin function)
func ResetRateLimit(rdb *redis.Client, ip string, period string) error {
	ctx := context.Background()
	now := time.Now()

	var key string
	switch period {
	case "second":
		key = fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
	case "day":
		key = fmt.Sprintf("rl:ip:%s:day:%s", ip, now.Format("2006-01-02"))
	default:
		return fmt.Errorf("invalid period: %s", period)
	}

	return rdb.Del(ctx, key).Err()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
