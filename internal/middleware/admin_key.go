package middleware

import (
	"crypto/subtle"

	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAdminKey guards operator endpoints with a shared key passed as ?key=
// or the X-Admin-Key header. An empty configured key disables the endpoint.
func RequireAdminKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Query("key")
		if got == "" {
			got = c.Get("X-Admin-Key")
		}
		if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
