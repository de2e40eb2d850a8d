package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/helpdesk/internal/api/http/handlers"
	"github.com/deskflow/helpdesk/internal/auth"
	"github.com/deskflow/helpdesk/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
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

	authed := cfg.AuthMiddleware.Handle
	authGroup.Post("/logout", authed, cfg.Auth.Logout)
	authGroup.Get("/me", authed, cfg.Auth.Me)
	authGroup.Post("/password/change", authed, cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", authed)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	// Fixed segments first so they are not captured by :id.
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/export", cfg.Tickets.Export)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Delete("/:id/comments", cfg.Tickets.DeleteComment)

	users := app.Group("/users", authed, auth.RequireAction(policy.ActionUserDirectory))
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	requests := app.Group("/requests", authed)
	requests.Get("/", cfg.Requests.ListRequests)
	requests.Post("/", cfg.Requests.CreateRequest)
	requests.Get("/:id", cfg.Requests.GetRequest)
	requests.Patch("/:id", cfg.Requests.UpdateRequest)
	requests.Delete("/:id", cfg.Requests.DeleteRequest)

	applications := app.Group("/applications", authed)
	applications.Get("/", cfg.Requests.ListApplications)
	applications.Post("/", cfg.Requests.Apply)
	applications.Patch("/:id", cfg.Requests.Decide)
}
