package snapshots

import (
	"errors"
	"strconv"

	snapshotsvc "houseform-api/internal/application/snapshots"
	"houseform-api/internal/interfaces/handlers/httperr"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the snapshot sync. Routes are mounted behind RequireAdminKey.
type Handlers struct {
	Service *snapshotsvc.Service
}

// SyncProjects POST /api/v1/sync/projects
func (h *Handlers) SyncProjects(c *fiber.Ctx) error {
	result, err := h.Service.SyncProjects(c.UserContext())
	if err != nil {
		return httperr.Write(c, err, "Failed to sync projects")
	}
	return response.Success(c, "Projects synced successfully", result, nil)
}

// ListSnapshots GET /api/v1/sync/projects?state=
func (h *Handlers) ListSnapshots(c *fiber.Ctx) error {
	result, err := h.Service.ListSnapshots(c.UserContext(), c.Query("state"))
	if err != nil {
		if errors.Is(err, snapshotsvc.ErrInvalidStateFilter) {
			return httperr.BadRequest(c, err.Error())
		}
		return httperr.Write(c, err, "Failed to fetch snapshots")
	}
	return response.Success(c, "Snapshots fetched successfully", result, nil)
}

// GetSnapshot GET /api/v1/sync/projects/:id
func (h *Handlers) GetSnapshot(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return httperr.BadRequest(c, "Invalid project id")
	}
	snap, err := h.Service.GetSnapshot(c.UserContext(), id)
	if err != nil {
		return httperr.Write(c, err, "Failed to fetch snapshot")
	}
	return response.Success(c, "Snapshot fetched successfully", snap, nil)
}
