package middleware

import (
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a wallet is signed in. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionAddress(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", c.Locals(userLocal))
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}
