package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fieldledger/FieldLedger/app/controllers"
	"github.com/fieldledger/FieldLedger/internal/pkg/billing"
	"github.com/fieldledger/FieldLedger/internal/pkg/cache"
	"github.com/fieldledger/FieldLedger/internal/pkg/database"
	"github.com/fieldledger/FieldLedger/internal/pkg/env"
	"github.com/fieldledger/FieldLedger/internal/pkg/jobqueue"
	"github.com/fieldledger/FieldLedger/internal/pkg/notify"
	"github.com/fieldledger/FieldLedger/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Billing configuration is resolved once; an incomplete configuration
	// keeps the app serving and surfaces as 500 on webhook deliveries.
	cfg, err := billing.ConfigFromEnv()
	if err != nil {
		log.Printf("Warning: billing configuration incomplete: %v", err)
	}

	channel := notify.NewChannelFromEnv()
	queue := jobqueue.NewQueue(3)
	queue.RegisterProcessor(jobqueue.NewEmailProcessor(channel))
	queue.Start()

	var provider billing.ProviderClient
	if cfg.APIKey != "" {
		provider = billing.NewStripeClient(cfg.APIKey)
	}
	svc := billing.NewServiceFromDB(
		database.GetDB(),
		provider,
		notify.NewSettlementDispatcher(queue, channel),
	)

	app := fiber.New()
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.NewApiRouter(controllers.NewWebhookController(cfg.Secrets, svc)))

	return app
}
