package health

import (
	"encoding/json"
	"strconv"
	"time"

	healthsvc "houseform-api/internal/application/health"
	"houseform-api/internal/middleware"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const serviceName = "houseform-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb     *redis.Client
	DB      healthsvc.DBPinger
	Chain   healthsvc.ChainPinger
	Network string
}

func (h *Handlers) collect(c *fiber.Ctx) healthsvc.CollectResult {
	return healthsvc.CollectHealth(c.UserContext(), h.Rdb, h.DB, h.Chain)
}

// Reset clears the request counters. Mounted behind RequireAdminKey.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	ctx := c.UserContext()
	keys := []string{middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime, middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq, middleware.KeyErrorLog}
	if err := h.Rdb.Del(ctx, keys...).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	if err := h.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.collect(c)
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"network":      h.Network,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors returns the most recent entries recorded by HealthMarker.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Rdb.LRange(c.UserContext(), middleware.KeyErrorLog, 0, 49).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return c.JSON(out)
}

func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	html := healthsvc.RenderDashboardHTML(h.collect(c), h.Network)
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(html)
}
