package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/auth"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/user"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

type AuthHandler struct {
	Provider        auth.Provider
	Users           *user.UserService
	Validator       *validation.Validator
	Log             *logrus.Logger
	CookieSecure    bool
	FrontendBaseURL string
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	auth.Token
	User *models.User `json:"user"`
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, tok auth.Token) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    tok.AccessToken,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.CookieSecure,
		SameSite: "Lax",
		MaxAge:   tok.ExpiresIn,
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.CookieSecure,
		SameSite: "Lax",
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req user.RegisterInput
	if err := decodeBody(c, h.Validator, validation.Register, &req); err != nil {
		return err
	}

	u, err := h.Users.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Registration successful", u)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := decodeBody(c, h.Validator, validation.Login, &req); err != nil {
		return err
	}

	u, err := h.Provider.Authenticate(c.UserContext(), auth.Credentials{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	tok, err := h.Provider.IssueToken(c.UserContext(), u)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, tok)
	return respond(c, fiber.StatusOK, "Login successful", loginResponse{Token: tok, User: u})
}

// Logout revokes the presented token, if any, and clears the session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if raw := middleware.TokenFromRequest(c); raw != "" {
		if err := h.Provider.Revoke(c.UserContext(), raw); err != nil {
			return err
		}
	}
	h.clearCookie(c, middleware.CookieName)
	return respond(c, fiber.StatusOK, "Logout successful", nil)
}

// authCodeURLer is implemented by providers with a browser consent flow.
type authCodeURLer interface {
	AuthCodeURL(state string) string
}

const (
	oauthStateCookie = "oauth_state"
	oauthNextCookie  = "oauth_next"
)

func (h *AuthHandler) GoogleStart(c *fiber.Ctx) error {
	p, ok := h.Provider.(authCodeURLer)
	if !ok {
		return apperr.NotFound("Google sign-in is not enabled")
	}

	next := c.Query("next", "/")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	st := auth.RandomState(32)

	for name, value := range map[string]string{oauthStateCookie: st, oauthNextCookie: next} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HTTPOnly: true,
			Secure:   h.CookieSecure,
			SameSite: "Lax",
			MaxAge:   10 * 60,
		})
	}
	return c.Redirect(p.AuthCodeURL(st), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	if _, ok := h.Provider.(authCodeURLer); !ok {
		return apperr.NotFound("Google sign-in is not enabled")
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Validation("Missing code or state", nil)
	}
	if st := c.Cookies(oauthStateCookie); st == "" || st != state {
		return apperr.Validation("Invalid state", nil)
	}
	next := c.Cookies(oauthNextCookie)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	h.clearCookie(c, oauthStateCookie)
	h.clearCookie(c, oauthNextCookie)

	base := strings.TrimRight(h.FrontendBaseURL, "/")
	u, err := h.Provider.Authenticate(c.UserContext(), auth.Credentials{Code: code})
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
			return c.Redirect(base+"/auth/login?err="+url.QueryEscape(e.Message), http.StatusTemporaryRedirect)
		}
		return err
	}
	tok, err := h.Provider.IssueToken(c.UserContext(), u)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, tok)
	h.Log.WithField("user_id", u.ID).Info("google sign-in")
	return c.Redirect(base+next, http.StatusTemporaryRedirect)
}
