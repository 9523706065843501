package response

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the envelope of every 2xx JSON response.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func orEmpty(v interface{}) interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v
}

func success(c *fiber.Ctx, code int, message string, data, metadata interface{}) error {
	return c.Status(code).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: orEmpty(metadata),
	})
}

// Success sends 200 with data. metadata carries counts and similar extras.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return success(c, fiber.StatusOK, message, data, metadata)
}

// SuccessCreated sends 201, used when a request recorded something new.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return success(c, fiber.StatusCreated, message, data, metadata)
}

// Error sends statusCode with the message the client should show.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    orEmpty(details),
		},
	})
}

// Unauthorized is the 401 used by auth middleware and session-only handlers.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}
