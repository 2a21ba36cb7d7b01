package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"moneta/internal/repositories/cache"
)

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

const idempotencyTTL = 24 * time.Hour

// Idempotency replays the stored response for a repeated Idempotency-Key,
// so a retried transfer submission is not applied twice. Requests without
// a key pass through untouched.
func Idempotency(cacheService *cache.CacheService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cacheService == nil {
			return c.Next()
		}

		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}
		cacheKey := cacheService.GenerateKey("idempotency", c.Path(), key)

		var cached cachedResponse
		if found, err := cacheService.Get(c.Context(), cacheKey, &cached); err == nil && found {
			c.Set("X-Idempotency-Replay", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(cached.Status).Send(cached.Body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= 500 {
			// Server faults may be transient; let the caller retry them.
			return nil
		}

		stored := cachedResponse{
			Status: status,
			Body:   append([]byte(nil), c.Response().Body()...),
		}
		if err := cacheService.SetWithTTL(c.Context(), cacheKey, stored, idempotencyTTL); err != nil {
			log.Printf("failed to store idempotency key %s: %v", key, err)
		}
		return nil
	}
}
