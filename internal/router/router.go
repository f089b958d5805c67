package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wenzhi-edu/report-api/internal/config"
	"github.com/wenzhi-edu/report-api/internal/handler"
	"github.com/wenzhi-edu/report-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReportHandler *handler.ReportHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api)
	}
}
