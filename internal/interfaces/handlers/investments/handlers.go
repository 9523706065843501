package investments

import (
	investsvc "houseform-api/internal/application/investments"
	"houseform-api/internal/interfaces/handlers/httperr"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *investsvc.Service
}

// List GET /api/v1/users/:address/investments
func (h *Handlers) List(c *fiber.Ctx) error {
	views, err := h.Service.List(c.UserContext(), c.Params("address"))
	if err != nil {
		return httperr.Write(c, err, "Failed to fetch investments")
	}
	return response.Success(c, "Investments fetched successfully", views, fiber.Map{"count": len(views)})
}
