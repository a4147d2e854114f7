package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	GlobalAPIMax        int // Max requests per window per IP
	GlobalAPIExpiration time.Duration

	DispatchMax        int // Max block dispatches per window per user
	DispatchExpiration time.Duration
}

// NewRateLimitConfig builds per-minute limits. Development mode relaxes the global limit.
func NewRateLimitConfig(globalMax, dispatchMax int, development bool) *RateLimitConfig {
	config := &RateLimitConfig{
		GlobalAPIMax:        globalMax,
		GlobalAPIExpiration: time.Minute,
		DispatchMax:         dispatchMax,
		DispatchExpiration:  time.Minute,
	}
	if development {
		config.GlobalAPIMax = 1000
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}
	return config
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
	})
}

// DispatchRateLimiter limits block dispatches per session user. It must run
// after SessionMiddleware.
func DispatchRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.DispatchMax,
		Expiration: config.DispatchExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			if sess := Session(c); sess.UserID != "" {
				return "dispatch:" + sess.UserID
			}
			return "dispatch-ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Dispatch limit reached for user: %s", Session(c).UserID)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many block executions. Please wait before trying again.",
				"retry_after": int(config.DispatchExpiration.Seconds()),
			})
		},
	})
}
