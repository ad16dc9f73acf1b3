package router

import (
	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
	"barterhub/internal/adapter/api/middleware"
)

// Handlers groups everything Setup mounts. Dev is nil outside development.
type Handlers struct {
	Chat      *handler.ChatHandler
	Media     *handler.MediaHandler
	Presence  *handler.PresenceHandler
	Admin     *handler.AdminHandler
	Health    *handler.HealthHandler
	WebSocket *handler.WebSocketHandler
	Dev       *handler.DevTokenHandler
}

type Options struct {
	WSPath      string
	RateLimiter *middleware.RateLimiter
}

func Setup(e *echo.Echo, h Handlers, auth *middleware.AuthMiddleware, opts Options) {
	authenticate := auth.Authenticate
	if opts.RateLimiter != nil {
		limit := opts.RateLimiter.Middleware()
		authenticate = func(next echo.HandlerFunc) echo.HandlerFunc {
			return limit(auth.Authenticate(next))
		}
	}

	SetupHealthRouter(e, h.Health)
	SetupChatRouter(e, h.Chat, authenticate)
	SetupMediaRouter(e, h.Media, authenticate)
	SetupPresenceRouter(e, h.Presence, authenticate)
	SetupAdminRouter(e, h.Admin, authenticate)
	SetupWebSocketRouter(e, opts.WSPath, h.WebSocket)
	if h.Dev != nil {
		SetupDevRouter(e, h.Dev)
	}
}
