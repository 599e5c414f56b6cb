package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

func respond(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

func respondList(c *fiber.Ctx, data any, meta services.Meta) error {
	return c.JSON(fiber.Map{"success": true, "data": data, "meta": meta})
}

// respondError renders err in the response envelope. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *fiber.Ctx, log *logrus.Logger, err error) error {
	if e, ok := apperr.As(err); ok {
		body := fiber.Map{"success": false, "message": e.Message}
		if len(e.Fields) > 0 {
			body["errors"] = e.Fields
		}
		return c.Status(e.Kind.HTTPStatus()).JSON(body)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
	}

	log.WithError(err).WithFields(logrus.Fields{
		"request_id": c.Locals("requestid"),
		"method":     c.Method(),
		"path":       c.Path(),
	}).Error("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "internal server error",
	})
}

// ErrorHandler is the fiber app error handler; handlers simply return errors.
func ErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}

// decodeBody validates the raw body against schema and then decodes it.
func decodeBody(c *fiber.Ctx, v *validation.Validator, schema string, out any) error {
	if err := v.Validate(c.UserContext(), schema, c.Body()); err != nil {
		return err
	}
	if err := c.BodyParser(out); err != nil {
		return apperr.Invalid("body", "Invalid request body")
	}
	return nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "Invalid id")
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Invalid(name, "Invalid id")
	}
	return &id, nil
}

func pageFromQuery(c *fiber.Ctx) services.Page {
	return services.Page{Skip: c.QueryInt("skip", 0), Limit: c.QueryInt("limit", 0)}
}
