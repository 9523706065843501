package transactions

import (
	"errors"

	txsvc "houseform-api/internal/application/transactions"
	"houseform-api/internal/domain"
	"houseform-api/internal/interfaces/handlers/httperr"
	"houseform-api/internal/middleware"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *txsvc.Service
}

// Prepare POST /api/v1/transactions/prepare
func (h *Handlers) Prepare(c *fiber.Ctx) error {
	caller, ok := middleware.SessionAddress(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body txsvc.PrepareInput
	if err := c.BodyParser(&body); err != nil {
		return httperr.BadRequest(c, "Invalid request body")
	}
	if body.Action == "" {
		return httperr.BadRequest(c, "action is required")
	}
	tx, err := h.Service.Prepare(c.UserContext(), caller, body)
	if err != nil {
		return httperr.Write(c, err, "Failed to prepare transaction")
	}
	return response.Success(c, "Transaction prepared", tx, nil)
}

// Submit POST /api/v1/transactions/submit
func (h *Handlers) Submit(c *fiber.Ctx) error {
	caller, ok := middleware.SessionAddress(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body txsvc.SubmitInput
	if err := c.BodyParser(&body); err != nil {
		return httperr.BadRequest(c, "Invalid request body")
	}
	if body.RawTx == "" || body.Action == "" {
		return httperr.BadRequest(c, "raw_tx and action are required")
	}
	rec, err := h.Service.Submit(c.UserContext(), caller, body)
	if err != nil {
		return httperr.Write(c, err, "Failed to submit transaction")
	}
	return response.SuccessCreated(c, "Transaction submitted", rec, nil)
}

// Wait GET /api/v1/transactions/:hash/wait
func (h *Handlers) Wait(c *fiber.Ctx) error {
	rec, err := h.Service.Wait(c.UserContext(), c.Params("hash"))
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationTimeout) && rec != nil {
			return response.Error(c, err.Error(), fiber.StatusGatewayTimeout, fiber.Map{"transaction": rec})
		}
		return httperr.Write(c, err, "Failed to wait for transaction")
	}
	msg := "Transaction confirmed"
	if rec.Status == domain.TxStatusReverted {
		msg = "Transaction reverted"
	}
	return response.Success(c, msg, rec, nil)
}

// List GET /api/v1/transactions?address=
// Without ?address= the signed-in wallet is used.
func (h *Handlers) List(c *fiber.Ctx) error {
	address := c.Query("address")
	if address == "" {
		addr, ok := middleware.SessionAddress(c)
		if !ok {
			return httperr.BadRequest(c, "address is required")
		}
		address = addr.Hex()
	}
	list, err := h.Service.List(c.UserContext(), address)
	if err != nil {
		return httperr.Write(c, err, "Failed to fetch transactions")
	}
	return response.Success(c, "Transactions fetched successfully", list, fiber.Map{"count": len(list)})
}
