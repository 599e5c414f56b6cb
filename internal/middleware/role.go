package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
)

// RequireRoles must run after Authenticate.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok || role == "" {
			return apperr.Unauthorized("Not authenticated")
		}
		if !allowedSet[models.Role(role)] {
			return apperr.Forbidden("Not enough permissions")
		}
		return c.Next()
	}
}
