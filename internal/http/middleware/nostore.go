package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks responses as not cacheable.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-store")
		return err
	}
}
