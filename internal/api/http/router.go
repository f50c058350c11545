package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-service/internal/api/http/handlers"
	"github.com/spec-kit/chat-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionsHandler
	Messages       *handlers.MessagesHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/debug/metrics", cfg.Health.Metrics)

	sessions := app.Group("/sessions", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	sessions.Post("/support", cfg.Sessions.CreateSupportSession)
	sessions.Post("/peer", cfg.Sessions.CreatePeerSession)
	sessions.Get("/", cfg.Sessions.ListSessions)
	sessions.Get("/:id", cfg.Sessions.GetSession)
	sessions.Post("/:id/accept", cfg.Sessions.AcceptPeerRequest)
	sessions.Post("/:id/reject", cfg.Sessions.RejectPeerRequest)
	sessions.Post("/:id/close", cfg.Sessions.CloseSession)
	sessions.Post("/:id/agent", auth.RequireElevated(), cfg.Sessions.AssignAgent)

	sessions.Post("/:id/messages", cfg.Messages.Send)
	sessions.Post("/:id/read", cfg.Messages.MarkRead)
	app.Get("/messages/unread-count", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Messages.UnreadCount)

	ws := app.Group("/ws", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Realtime.Upgrade)
	ws.Get("/sessions/:id", cfg.Realtime.SessionStream())
	ws.Get("/inbox", cfg.Realtime.InboxStream())
}
