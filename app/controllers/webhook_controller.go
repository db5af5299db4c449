package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fieldledger/FieldLedger/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const webhookTimeout = 15 * time.Second

// WebhookService is the part of the billing service the controller needs.
type WebhookService interface {
	HandleEvent(ctx context.Context, evt billing.Event) error
}

// WebhookController terminates payment-provider webhook deliveries. All
// dependencies are injected at startup.
type WebhookController struct {
	secrets []billing.WebhookSecret
	service WebhookService
}

func NewWebhookController(secrets []billing.WebhookSecret, service WebhookService) *WebhookController {
	return &WebhookController{secrets: secrets, service: service}
}

// HandleStripeWebhook authenticates and applies one delivery. The raw body
// bytes are preserved for verification; nothing is re-serialized before the
// signature check.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	if len(wc.secrets) == 0 {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook secrets are not configured"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := strings.TrimSpace(c.Get("Stripe-Signature"))

	stripeEvent, domain, err := billing.VerifySignature(rawBody, sigHeader, wc.secrets)
	if err != nil {
		if errors.Is(err, billing.ErrNoSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No signature"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}
	log.Debugf("[Webhook] Event %s verified under %s trust domain", stripeEvent.ID, domain)

	evt, err := billing.DecodeEvent(stripeEvent, domain)
	if err != nil {
		log.Warnf("[Webhook] Event %s failed to decode: %v", stripeEvent.ID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	if err := wc.service.HandleEvent(ctx, evt); err != nil {
		if errors.Is(err, billing.ErrInvoiceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invoice not found"})
		}
		log.Errorf("[Webhook] Event %s processing failed: %v", evt.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
