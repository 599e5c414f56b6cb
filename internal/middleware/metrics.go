package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/metrics"
)

// Metrics records request counts and latency by route pattern, so ids in
// paths do not explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		metrics.InFlightInc()
		defer metrics.InFlightDec()

		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		// c.Method() aliases the request buffer, which fasthttp reuses
		metrics.ObserveHTTP(utils.CopyString(c.Method()), route, c.Response().StatusCode(), time.Since(start))
		return nil
	}
}
