package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-chat/internal/api/http/handlers"
	"github.com/spec-kit/ticket-chat/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Directory      *handlers.DirectoryHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	api.Get("/companies", cfg.Directory.ListCompanies)
	api.Get("/companies/:id/tickets", cfg.Directory.ListTickets)
	api.Get("/tickets/:id/messages", cfg.Directory.ListMessages)
	api.Post("/tickets/:id/messages", cfg.Directory.CreateMessage)
}
