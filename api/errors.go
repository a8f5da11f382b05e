package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, resolve.ErrUnauthenticated), errors.Is(err, user.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, resolve.ErrEmptyQuestion), errors.Is(err, user.ErrBlankCredentials):
		return fiber.StatusBadRequest
	case errors.Is(err, history.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, history.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, user.ErrUsernameTaken):
		return fiber.StatusConflict
	case errors.Is(err, resolve.ErrBusy):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes err as an ErrorResponse. Internal failures are logged and
// their detail is withheld from the client.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		msg = "internal server error"
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
