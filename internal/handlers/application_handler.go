package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/application"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

type ApplicationHandler struct {
	Applications *application.ApplicationService
	Validator    *validation.Validator
}

func NewApplicationHandler(apps *application.ApplicationService, v *validation.Validator) *ApplicationHandler {
	return &ApplicationHandler{Applications: apps, Validator: v}
}

func (h *ApplicationHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var req application.CreateInput
	if err := decodeBody(c, h.Validator, validation.ApplicationCreate, &req); err != nil {
		return err
	}

	app, err := h.Applications.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Application submitted", app)
}

func (h *ApplicationHandler) ListMine(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var status *models.ApplicationStatus
	if s := c.Query("status"); s != "" {
		st := models.ApplicationStatus(s)
		status = &st
	}

	out, meta, err := h.Applications.ListMine(c.UserContext(), actor, status, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *ApplicationHandler) ListForProject(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	projectID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	out, meta, err := h.Applications.ListForProject(c.UserContext(), actor, projectID, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	app, err := h.Applications.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", app)
}

func (h *ApplicationHandler) Update(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req application.UpdateInput
	if err := decodeBody(c, h.Validator, validation.ApplicationUpdate, &req); err != nil {
		return err
	}

	res, err := h.Applications.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Application updated", res)
}

func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Applications.Delete(c.UserContext(), actor, id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Application deleted", nil)
}
