package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fabrimaq/maintenance-service/internal/api/http/handlers"
	"github.com/fabrimaq/maintenance-service/internal/auth"
	"github.com/fabrimaq/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Schedules      *handlers.SchedulesHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.AuthMiddleware.Handle, cfg.Auth.IssueToken)

	chamados := app.Group("/chamados", cfg.AuthMiddleware.Handle)
	chamados.Post("", cfg.Tickets.Create)
	chamados.Get("", cfg.Tickets.List)
	chamados.Get("/:id", cfg.Tickets.Get)
	chamados.Post("/:id/atender", cfg.Tickets.Claim)
	chamados.Post("/:id/concluir", cfg.Tickets.Complete)
	chamados.Patch("/:id/status", cfg.Tickets.PatchStatus)
	chamados.Patch("/:id/checklist", cfg.Tickets.PatchChecklist)
	chamados.Post("/:id/observacoes", cfg.Tickets.AddObservation)

	agendamentos := app.Group("/agendamentos", cfg.AuthMiddleware.Handle)
	agendamentos.Get("", cfg.Schedules.List)
	agendamentos.Get("/:id", cfg.Schedules.Get)
	agendamentos.Post("", auth.RequireRole(domain.RoleManager), cfg.Schedules.Create)
	agendamentos.Patch("/:id", auth.RequireRole(domain.RoleManager), cfg.Schedules.Patch)
	agendamentos.Delete("/:id", auth.RequireRole(domain.RoleManager), cfg.Schedules.Delete)
	agendamentos.Post("/:id/iniciar", auth.RequireRole(domain.RoleTechnician, domain.RoleManager), cfg.Schedules.Start)
}
