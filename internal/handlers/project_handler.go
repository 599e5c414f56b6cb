package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/project"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

type ProjectHandler struct {
	Projects  *project.ProjectService
	Validator *validation.Validator
}

func NewProjectHandler(projects *project.ProjectService, v *validation.Validator) *ProjectHandler {
	return &ProjectHandler{Projects: projects, Validator: v}
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var req project.CreateInput
	if err := decodeBody(c, h.Validator, validation.ProjectCreate, &req); err != nil {
		return err
	}

	p, err := h.Projects.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Project created", p)
}

// List filters on ?status=&category=&search= and pages with ?skip=&limit=
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	f := project.ListFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     pageFromQuery(c),
	}
	if s := c.Query("status"); s != "" {
		st := models.ProjectStatus(s)
		f.Status = &st
	}

	out, meta, err := h.Projects.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *ProjectHandler) ListMine(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	out, meta, err := h.Projects.ListMine(c.UserContext(), actor, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Projects.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", p)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req project.UpdateInput
	if err := decodeBody(c, h.Validator, validation.ProjectUpdate, &req); err != nil {
		return err
	}

	p, err := h.Projects.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Project updated", p)
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Projects.Delete(c.UserContext(), actor, id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Project deleted", nil)
}
