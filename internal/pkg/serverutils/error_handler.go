package serverutils

import (
	"errors"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	var (
		validation *dto.ValidationError
		notFound   *dto.NotFoundError
		conflict   *dto.ConflictError
		forbidden  *dto.ForbiddenError
		fiberErr   *fiber.Error
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &conflict):
		return fiber.StatusConflict
	case errors.As(err, &forbidden):
		return fiber.StatusForbidden
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware renders any error returned further down the chain
// as the ErrorResponse envelope. Controllers return service errors as-is.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()

		var pipelineErr *dto.PipelineError
		switch {
		case errors.As(err, &pipelineErr):
			message = "Analysis failed: " + pipelineErr.Err.Error()
		case code == fiber.StatusInternalServerError:
			log.Error("HTTP", "Unhandled error", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
			message = "Internal server error"
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
