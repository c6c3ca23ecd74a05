package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/onpoint/ticket-bridge/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Sync    *handlers.SyncHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/status", cfg.Tickets.UpdateStatus)

	tickets.Post("/:id/transfer", cfg.Sync.Transfer)
	tickets.Post("/:id/refresh", cfg.Sync.Refresh)

	sync := app.Group("/sync")
	sync.Post("/refresh-all", cfg.Sync.RefreshAll)
	sync.Get("/stats", cfg.Sync.Stats)
	sync.Get("/errors", cfg.Sync.Errors)
	sync.Get("/recent", cfg.Sync.Recent)
}
