package main

import (
	"tourbook/internal/router"
	"tourbook/pkg/app"
	"tourbook/pkg/config"

	"github.com/joho/godotenv"
)

const ServiceName = "tourbook-api"

func main() {
	// A missing .env is fine outside development.
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	api := router.New(cfg)
	defer func() {
		if err := api.Close(); err != nil {
			cfg.Log.Error("Failed to close API resources", "error", err)
		}
	}()

	application := app.NewApplication()
	application.SetApp(cfg, api, api.WebhookHandler())
	application.Run()
}
