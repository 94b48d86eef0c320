package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/logger"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, errs.ErrModelCall), errors.Is(err, errs.ErrModelResponseParse):
		return fiber.StatusBadGateway
	case errors.Is(err, errs.ErrModelUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the app-wide fiber error handler. Internal errors are
// logged and hidden behind a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	msg := err.Error()

	if code >= fiber.StatusInternalServerError && code != fiber.StatusBadGateway && code != fiber.StatusServiceUnavailable {
		logger.Get().Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")
		msg = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
