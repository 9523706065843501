package projects

import (
	"strconv"

	projectsvc "houseform-api/internal/application/projects"
	"houseform-api/internal/interfaces/handlers/httperr"
	"houseform-api/internal/middleware"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *projectsvc.Service
}

func projectID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	return id, err == nil
}

// List GET /api/v1/projects
func (h *Handlers) List(c *fiber.Ctx) error {
	views, err := h.Service.List(c.UserContext())
	if err != nil {
		return httperr.Write(c, err, "Failed to fetch projects")
	}
	return response.Success(c, "Projects fetched successfully", views, fiber.Map{"count": len(views)})
}

// Get GET /api/v1/projects/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return httperr.BadRequest(c, "Invalid project id")
	}
	view, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return httperr.Write(c, err, "Failed to fetch project")
	}
	return response.Success(c, "Project fetched successfully", view, nil)
}

// Eligibility GET /api/v1/projects/:id/eligibility?address=
// Without ?address= the signed-in wallet is used; anonymous callers are visitors.
func (h *Handlers) Eligibility(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return httperr.BadRequest(c, "Invalid project id")
	}
	address := c.Query("address")
	if address == "" {
		if addr, ok := middleware.SessionAddress(c); ok {
			address = addr.Hex()
		}
	}
	view, err := h.Service.Eligibility(c.UserContext(), id, address)
	if err != nil {
		return httperr.Write(c, err, "Failed to evaluate eligibility")
	}
	return response.Success(c, "Eligibility evaluated", view, nil)
}

// ByBuilder GET /api/v1/users/:address/projects
func (h *Handlers) ByBuilder(c *fiber.Ctx) error {
	views, err := h.Service.ListByBuilder(c.UserContext(), c.Params("address"))
	if err != nil {
		return httperr.Write(c, err, "Failed to fetch builder projects")
	}
	return response.Success(c, "Projects fetched successfully", views, fiber.Map{"count": len(views)})
}
