package server

import (
	"secretheart/internal/models"
	"secretheart/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListConfessions handles GET /api/confessions
// @Summary List confessions
// @Description Every confession, newest first
// @Tags confessions
// @Produce json
// @Success 200 {array} models.Confession
// @Failure 500 {object} models.ErrorResponse
// @Router /confessions [get]
func (s *Server) ListConfessions(c *fiber.Ctx) error {
	list, err := s.confessionService.ListConfessions(c.UserContext())
	if err != nil {
		return respondServiceError(c, err, service.MsgFetchFailed)
	}
	return c.JSON(list)
}

// GetConfession handles GET /api/confessions/:id
// @Summary Get a confession
// @Tags confessions
// @Produce json
// @Param id path int true "Confession ID"
// @Success 200 {object} models.Confession
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /confessions/{id} [get]
func (s *Server) GetConfession(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	confession, err := s.confessionService.GetConfession(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err, service.MsgFetchOneFailed)
	}
	return c.JSON(confession)
}

// CreateConfession handles POST /api/confessions
// @Summary Post a confession
// @Tags confessions
// @Accept json
// @Produce json
// @Param request body service.CreateConfessionInput true "Confession"
// @Success 201 {object} models.Confession
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /confessions [post]
func (s *Server) CreateConfession(c *fiber.Ctx) error {
	var req service.CreateConfessionInput
	// An empty body is a missing message, which the service reports.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	confession, err := s.confessionService.CreateConfession(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err, service.MsgSaveFailed)
	}
	return c.Status(fiber.StatusCreated).JSON(confession)
}

// LikeConfession handles POST /api/confessions/:id/like
// @Summary Like a confession
// @Description Atomically adds one like and returns the updated confession
// @Tags confessions
// @Produce json
// @Param id path int true "Confession ID"
// @Success 200 {object} models.Confession
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /confessions/{id}/like [post]
func (s *Server) LikeConfession(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	confession, err := s.confessionService.LikeConfession(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err, service.MsgLikeFailed)
	}
	return c.JSON(confession)
}
