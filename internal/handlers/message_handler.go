package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/message"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

type MessageHandler struct {
	Messages  *message.MessageService
	Validator *validation.Validator
}

func NewMessageHandler(messages *message.MessageService, v *validation.Validator) *MessageHandler {
	return &MessageHandler{Messages: messages, Validator: v}
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var req message.CreateInput
	if err := decodeBody(c, h.Validator, validation.MessageCreate, &req); err != nil {
		return err
	}

	msg, err := h.Messages.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Message sent", msg)
}

// List returns the caller's messages, narrowed by
// ?other_user_id=&project_id=&application_id=
func (h *MessageHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	f := message.ListFilter{Page: pageFromQuery(c)}
	if f.OtherUserID, err = queryUUID(c, "other_user_id"); err != nil {
		return err
	}
	if f.ProjectID, err = queryUUID(c, "project_id"); err != nil {
		return err
	}
	if f.ApplicationID, err = queryUUID(c, "application_id"); err != nil {
		return err
	}

	out, meta, err := h.Messages.List(c.UserContext(), actor, f)
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *MessageHandler) Conversations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	convs, err := h.Messages.Conversations(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", convs)
}

func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	msg, err := h.Messages.MarkRead(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", msg)
}
