// Package httperr maps domain errors onto the standard error response.
package httperr

import (
	"errors"

	"houseform-api/internal/domain"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var statusMap = []struct {
	err  error
	code int
}{
	{domain.ErrUnknownAction, fiber.StatusBadRequest},
	{domain.ErrInvalidShares, fiber.StatusBadRequest},
	{domain.ErrInvalidAmount, fiber.StatusBadRequest},
	{domain.ErrInvalidAddress, fiber.StatusBadRequest},
	{domain.ErrInvalidCreateParams, fiber.StatusBadRequest},
	{domain.ErrMissingProjectID, fiber.StatusBadRequest},
	{domain.ErrInvalidRawTx, fiber.StatusBadRequest},
	{domain.ErrCallMismatch, fiber.StatusBadRequest},
	{domain.ErrProjectNotFound, fiber.StatusNotFound},
	{domain.ErrTransactionNotFound, fiber.StatusNotFound},
	{domain.ErrActionNotPermitted, fiber.StatusConflict},
	{domain.ErrSenderMismatch, fiber.StatusForbidden},
	{domain.ErrForeignTransaction, fiber.StatusForbidden},
	{domain.ErrConfirmationTimeout, fiber.StatusGatewayTimeout},
}

// Status returns the HTTP status for err, 500 when it is not a known domain error.
func Status(err error) int {
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return fiber.StatusInternalServerError
}

// Write sends err in the standard error format. Unknown errors are logged and
// reported as fallback so chain or database details stay out of the response.
func Write(c *fiber.Ctx, err error, fallback string) error {
	code := Status(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg(fallback)
		return response.Error(c, fallback, code, nil)
	}
	return response.Error(c, err.Error(), code, nil)
}

// BadRequest is the 400 response for an unparsable path or body.
func BadRequest(c *fiber.Ctx, message string) error {
	return response.Error(c, message, fiber.StatusBadRequest, nil)
}
