package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-grader/internal/utils"
)

// RateLimit throttles a route per authenticated user, falling back to the
// client IP. Counters live in storage so several API instances share one
// budget; a nil storage keeps them in process memory.
func RateLimit(scope string, max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   window,
		Storage:      storage,
		KeyGenerator: limiterKey(scope),
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many uploads, try again later", fiber.Map{
				"retry_after": c.GetRespHeader(fiber.HeaderRetryAfter),
			})
		},
	})
}

func limiterKey(scope string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if id, ok := c.Locals("user_id").(uint); ok && id != 0 {
			return scope + ":user:" + strconv.FormatUint(uint64(id), 10)
		}
		return scope + ":ip:" + c.IP()
	}
}
