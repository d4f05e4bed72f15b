package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/seatsweep/seatsweep/app/controllers"
	"github.com/seatsweep/seatsweep/internal/pkg/middleware"
)

type HttpRouter struct {
	internalSecret string
}

func NewHttpRouter(internalSecret string) *HttpRouter {
	return &HttpRouter{internalSecret: internalSecret}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/up", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	// Webhook ingest. Both are authenticated by payload signature, not by
	// session or secret header.
	app.Post("/webhooks/payment", controllers.HandlePaymentWebhook)
	app.Post("/webhooks/directory", controllers.HandleDirectoryInteraction)

	// Internal trigger surface, shared-secret authenticated.
	internal := app.Group("/internal", middleware.InternalAuthMiddleware(h.internalSecret))
	internal.Post("/audit/run", controllers.HandleAuditRun)
	internal.Get("/audit/status", controllers.HandleAuditStatus)
	internal.Get("/audit/jobs/:id", controllers.HandleAuditJob)
	internal.Get("/tenants/:workspace/flagged", controllers.HandleFlaggedGuests)
}
