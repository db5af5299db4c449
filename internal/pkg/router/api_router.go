package router

import (
	"github.com/fieldledger/FieldLedger/app/controllers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type ApiRouter struct {
	webhooks *controllers.WebhookController
}

func NewApiRouter(webhooks *controllers.WebhookController) *ApiRouter {
	return &ApiRouter{webhooks: webhooks}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// The provider sends a CORS preflight before deliveries from browser-side
	// tooling; answer permissively and keep the signature header allowed.
	hooks := app.Group("/api/webhooks", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST, OPTIONS",
		AllowHeaders: "authorization, x-client-info, apikey, content-type, stripe-signature",
	}))
	hooks.Options("/stripe", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).SendString("ok")
	})
	hooks.Post("/stripe", h.webhooks.HandleStripeWebhook)
}
