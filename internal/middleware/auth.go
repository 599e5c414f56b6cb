package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/auth"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
)

// CookieName is the session cookie set on login.
const CookieName = "cc_token"

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.Cookies(CookieName))
}

// Authenticate resolves the caller through the active provider and stores
// "user", "userId", "role" and "token" in the request locals.
func Authenticate(p auth.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := TokenFromRequest(c)
		u, err := p.ResolveUser(c.UserContext(), raw)
		if err != nil {
			return err
		}

		c.Locals("user", u)
		c.Locals("userId", u.ID.String())
		c.Locals("role", string(u.Role))
		c.Locals("token", raw)
		return c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	u, ok := c.Locals("user").(*models.User)
	return u, ok && u != nil
}

// CurrentActor is the caller as the services see it.
func CurrentActor(c *fiber.Ctx) (models.Actor, error) {
	u, ok := CurrentUser(c)
	if !ok || u.ID == uuid.Nil {
		return models.Actor{}, apperr.Unauthorized("Not authenticated")
	}
	return models.Actor{ID: u.ID, Role: u.Role}, nil
}
