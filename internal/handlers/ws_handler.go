package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/auth"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/realtime"
)

// WSHandler serves the notification socket. Browsers cannot set headers on
// an upgrade, so the token may also come from ?token=.
type WSHandler struct {
	Provider auth.Provider
	Hub      *realtime.Hub
	Log      *logrus.Logger
}

func NewWSHandler(p auth.Provider, hub *realtime.Hub, log *logrus.Logger) *WSHandler {
	return &WSHandler{Provider: p, Hub: hub, Log: log}
}

// Upgrade authenticates the caller before the protocol switch.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	raw := c.Query("token")
	if raw == "" {
		raw = middleware.TokenFromRequest(c)
	}
	u, err := h.Provider.ResolveUser(c.UserContext(), raw)
	if err != nil {
		return err
	}
	c.Locals("userId", u.ID.String())
	return c.Next()
}

func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		raw, _ := conn.Locals("userId").(string)
		uid, err := uuid.Parse(raw)
		if err != nil {
			_ = conn.Close()
			return
		}

		log := h.Log.WithField("user_id", uid)
		log.Debug("websocket connected")
		h.Hub.Serve(conn, uid)
		log.Debug("websocket disconnected")
	})
}
