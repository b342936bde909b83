package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/placementops/ticketing/internal/api/http/handlers"
	"github.com/placementops/ticketing/internal/auth"
	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Clients        *handlers.ClientsHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// FilesDir serves stored attachments under /files when set.
	FilesDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	if cfg.FilesDir != "" {
		app.Static("/files", cfg.FilesDir)
	}

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/activity", cfg.Tickets.ListActivity)
	tickets.Get("/:id/escalations", cfg.Tickets.ListEscalations)
	tickets.Post("/:id/actions/:action", cfg.Tickets.Transition)

	protected.Get("/sla", auth.RequireRole(
		domain.RoleSystemAdmin,
		domain.RoleAccountManager,
		domain.RoleCRO,
		domain.RoleCOO,
		domain.RoleCEO,
	), cfg.SLA.List)

	clients := protected.Group("/clients")
	clients.Get("/pending", cfg.Clients.ListPending)
	clients.Post("/pending", cfg.Clients.SubmitPending)
	clients.Post("/pending/:id/assign", cfg.Clients.AssignRoles)
	clients.Get("/:id", cfg.Clients.GetClient)
}
