package handler

import (
	"paperchat/internal/pkg/logger"
	"paperchat/internal/pkg/serverutils"
	internalWS "paperchat/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionEventHandler serves the websocket that pushes session list events.
type SessionEventHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewSessionEventHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *SessionEventHandler {
	return &SessionEventHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the handshake and hands the connection to the hub.
func (h *SessionEventHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query wins.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c)
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	scope, err := serverutils.ParseUserToken(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("SessionEventHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("SessionEventHandler", "Starting WebSocket session", map[string]interface{}{"scope": scope})
			internalWS.ServeWs(h.hub, conn, scope)
			h.logger.Info("SessionEventHandler", "WebSocket session ended", map[string]interface{}{"scope": scope})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *SessionEventHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/chat/v1/ws", h.ServeWs)
}
