package serverutils

import (
	"errors"

	"ai-critic-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a domain error to an HTTP status.
type StatusFor struct {
	Err    error
	Status int
}

// NewErrorHandler renders every returned error as the JSON error envelope.
// Fiber errors keep their code; errors matching a mapping (errors.Is) get
// its status; anything else is a 500.
func NewErrorHandler(log logger.ILogger, mappings ...StatusFor) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		} else {
			for _, m := range mappings {
				if errors.Is(err, m.Err) {
					code = m.Status
					break
				}
			}
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": code,
				"error":  err.Error(),
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(err.Error()))
	}
}
