package httperr

import (
	"errors"
	"fmt"
	"testing"

	"houseform-api/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAddress, fiber.StatusBadRequest},
		{fmt.Errorf("%w: goal must be positive", domain.ErrInvalidCreateParams), fiber.StatusBadRequest},
		{domain.ErrProjectNotFound, fiber.StatusNotFound},
		{domain.ErrActionNotPermitted, fiber.StatusConflict},
		{domain.ErrSenderMismatch, fiber.StatusForbidden},
		{fmt.Errorf("%w: signed buyShares, declared redeemFee", domain.ErrCallMismatch), fiber.StatusBadRequest},
		{domain.ErrConfirmationTimeout, fiber.StatusGatewayTimeout},
		{errors.New("dial tcp: connection refused"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}
