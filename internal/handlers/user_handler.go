package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/user"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

type UserHandler struct {
	Users     *user.UserService
	Validator *validation.Validator
}

func NewUserHandler(users *user.UserService, v *validation.Validator) *UserHandler {
	return &UserHandler{Users: users, Validator: v}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.Unauthorized("Not authenticated")
	}
	return respond(c, fiber.StatusOK, "", u)
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var req user.UpdateInput
	if err := decodeBody(c, h.Validator, validation.UserUpdate, &req); err != nil {
		return err
	}

	u, err := h.Users.UpdateMe(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Profile updated", u)
}

// Get returns another user's public profile.
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", u.Public())
}

func (h *UserHandler) AdminList(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var role *models.Role
	if r := c.Query("role"); r != "" {
		rr := models.Role(r)
		role = &rr
	}

	users, meta, err := h.Users.List(c.UserContext(), actor, role, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respondList(c, users, meta)
}

type setActiveReq struct {
	IsActive *bool `json:"is_active"`
}

func (h *UserHandler) AdminSetActive(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req setActiveReq
	if err := c.BodyParser(&req); err != nil || req.IsActive == nil {
		return apperr.Invalid("is_active", "is_active is required")
	}

	u, err := h.Users.SetActive(c.UserContext(), actor, id, *req.IsActive)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", u)
}
