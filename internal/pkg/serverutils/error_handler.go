package serverutils

import (
	"errors"

	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/internal/repository/contract"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error returned by a handler to its HTTP status and the
// message shown to the client. Unclassified errors are hidden behind a
// generic message.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	var validationErr *ValidationError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Error()
	case errors.Is(err, contract.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, contract.ErrNoteNotFound):
		return fiber.StatusNotFound, "Note not found"
	case errors.Is(err, contract.ErrConflict):
		return fiber.StatusConflict, "Note was modified concurrently, retry"
	case contract.IsTransient(err):
		return fiber.StatusServiceUnavailable, "Storage temporarily unavailable, retry later"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

// ErrorHandlerMiddleware turns errors from downstream handlers into a
// BaseResponse. Server-side failures are logged with the request path.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": code,
				"error":  err.Error(),
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
