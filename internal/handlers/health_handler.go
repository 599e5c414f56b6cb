package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// PingFunc reports whether one backing service is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	Checks  map[string]PingFunc
	Timeout time.Duration
	Log     *logrus.Logger
}

func NewHealthHandler(checks map[string]PingFunc, log *logrus.Logger) *HealthHandler {
	return &HealthHandler{Checks: checks, Timeout: 2 * time.Second, Log: log}
}

// Health answers 200 when every dependency responds and 503 otherwise.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.Timeout)
	defer cancel()

	status := fiber.StatusOK
	checks := make(fiber.Map, len(h.Checks))
	for name, ping := range h.Checks {
		if err := ping(ctx); err != nil {
			h.Log.WithError(err).WithField("check", name).Warn("health check failed")
			checks[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := fiber.Map{"status": "ok", "checks": checks}
	if status != fiber.StatusOK {
		body["status"] = "unavailable"
	}
	return c.Status(status).JSON(body)
}
