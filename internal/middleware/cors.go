package middleware

import (
	"strings"

	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig allows browser origins ending in AllowedSuffix (the dapp domain),
// localhost when AllowLocalhost is set, and any origin that presents DevPassword.
type CORSConfig struct {
	AllowedSuffix  string
	DevPassword    string
	AllowLocalhost bool
}

func isLocalhost(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	switch {
	case cfg.AllowLocalhost && isLocalhost(origin):
		return true
	case cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix)):
		return true
	case cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword:
		return true
	}
	return false
}

// CORS answers preflights itself and rejects disallowed origins with 403.
// Requests without Origin (curl, server to server) pass through.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		setCORSHeaders(c, origin)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	c.Set("Access-Control-Allow-Headers", "Content-Type, dev-password, X-Admin-Key, "+traceIDHeader)
	c.Set("Access-Control-Expose-Headers", traceIDHeader)
	c.Set("Vary", "Origin")
}
