package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// InternalAuthMiddleware guards internal trigger endpoints with a shared
// secret header, compared in constant time.
func InternalAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		presented := c.Get("X-Internal-Secret")
		if presented == "" || secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing internal secret"})
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid internal secret"})
		}
		return c.Next()
	}
}
