package server

import (
	"errors"

	"secretheart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid confession ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondServiceError maps a service error onto an HTTP status. Errors that
// are not AppErrors are reported as 500 under fallback.
func respondServiceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case models.IsCode(err, models.CodeValidation):
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	case models.IsCode(err, models.CodeNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, err)
	case models.IsCode(err, models.CodeInternal):
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	default:
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(fallback, err))
	}
}
