package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/payment"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/tripay"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

// CallbackVerifier checks a gateway callback signature over the raw body.
type CallbackVerifier interface {
	ValidateSignature(signature string, body []byte) bool
}

type PaymentHandler struct {
	Payments  *payment.PaymentService
	Validator *validation.Validator
	// nil when the configured gateway does not call back
	Verifier CallbackVerifier
	Log      *logrus.Logger
}

func NewPaymentHandler(payments *payment.PaymentService, v *validation.Validator, verifier CallbackVerifier, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Validator: v, Verifier: verifier, Log: log}
}

func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var req payment.IntentInput
	if err := decodeBody(c, h.Validator, validation.PaymentIntent, &req); err != nil {
		return err
	}

	res, err := h.Payments.CreateIntent(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Payment intent created", res)
}

type confirmReq struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var req confirmReq
	if err := decodeBody(c, h.Validator, validation.PaymentConfirm, &req); err != nil {
		return err
	}

	pay, err := h.Payments.Confirm(c.UserContext(), actor, req.PaymentIntentID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Payment held in escrow", pay)
}

func (h *PaymentHandler) Release(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	pay, err := h.Payments.Release(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Payment released", pay)
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	pay, err := h.Payments.Refund(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Payment refunded", pay)
}

func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	pay, err := h.Payments.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", pay)
}

func (h *PaymentHandler) ListForProject(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	out, meta, err := h.Payments.ListForProject(c.UserContext(), actor, id, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *PaymentHandler) ListMine(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var status *models.PaymentStatus
	if s := c.Query("status"); s != "" {
		st := models.PaymentStatus(s)
		status = &st
	}
	out, meta, err := h.Payments.ListMine(c.UserContext(), actor, status, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respondList(c, out, meta)
}

func (h *PaymentHandler) Earnings(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	st, err := h.Payments.Earnings(c.UserContext(), actor, pageFromQuery(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", st)
}

// Callback receives the gateway's status notification. Only a PAID
// notification changes anything; it funds the matching pending payment.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	if h.Verifier == nil {
		return apperr.NotFound("Payment callbacks are not enabled")
	}

	signature := c.Get("X-Callback-Signature")
	if signature == "" {
		return apperr.Validation("Missing signature", nil)
	}
	body := c.Body()
	if !h.Verifier.ValidateSignature(signature, body) {
		h.Log.WithField("ip", c.IP()).Warn("payment callback with invalid signature")
		return apperr.Validation("Invalid signature", nil)
	}

	var payload tripay.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperr.Validation("Invalid payload", nil)
	}

	log := h.Log.WithFields(logrus.Fields{"reference": payload.Reference, "status": payload.Status})
	if !payload.Paid() {
		log.Info("payment callback ignored")
		return c.JSON(fiber.Map{"success": true})
	}

	if _, err := h.Payments.ConfirmByGateway(c.UserContext(), payload.Reference); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			// acknowledge so the gateway stops retrying a reference we never issued
			log.Warn("payment callback for unknown reference")
			return c.JSON(fiber.Map{"success": false, "message": "Payment not found, ignored"})
		}
		return err
	}
	log.Info("payment funded by gateway")
	return c.JSON(fiber.Map{"success": true})
}

// ChannelLister is implemented by gateways that expose payment methods.
type ChannelLister interface {
	PaymentChannels(ctx context.Context) ([]tripay.PaymentChannel, error)
}

func (h *PaymentHandler) Channels(c *fiber.Ctx) error {
	lister, ok := h.Payments.Gateway.(ChannelLister)
	if !ok {
		return apperr.NotFound("Payment channels are not available")
	}
	channels, err := lister.PaymentChannels(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", channels)
}
