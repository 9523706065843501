package bootstrap

import (
	"houseform-api/internal/config"
	"houseform-api/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for the serverless entry point, which cannot import internal packages directly.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, err := router.CreateApp(cfg)
	return app, err
}
