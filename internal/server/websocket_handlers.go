package server

import (
	"log/slog"

	"secretheart/internal/featureflags"
	"secretheart/internal/middleware"
	"secretheart/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireLiveFeed 404s the live feed when the flag is off for this client
// and rejects plain HTTP requests.
func (s *Server) requireLiveFeed(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.LiveFeed, c.IP()) {
		return models.RespondWithError(c, fiber.StatusNotFound, &models.AppError{
			Code:    models.CodeNotFound,
			Message: "Live feed is disabled",
		})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	return c.Next()
}

// WebsocketHandler streams confession_created and confession_liked events.
// @Summary Live confession feed
// @Tags realtime
// @Success 101
// @Failure 404 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			middleware.Logger.Warn("live feed registration refused", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("live feed client connected", slog.String("client_id", client.ID))

		go client.WritePump()
		client.ReadPump()
	})
}
