package handler

import (
	"smart-meal-be/internal/pkg/logger"
	internalWS "smart-meal-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionStreamHandler upgrades clients to a websocket that receives every
// status change of one session.
type SessionStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewSessionStreamHandler(hub *internalWS.Hub, log logger.ILogger) *SessionStreamHandler {
	return &SessionStreamHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *SessionStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/session/:id", h.ServeWs)
}

func (h *SessionStreamHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" || len(sessionID) > 64 {
		return fiber.ErrBadRequest
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("SessionStream", "WebSocket session started", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("SessionStream", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
