package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
)

func SetupPresenceRouter(e *echo.Echo, h *handler.PresenceHandler, authenticate echo.MiddlewareFunc) {
	register(e.Group("/v1/presence", authenticate), []Route{
		{Method: http.MethodGet, Path: "/online", Handler: h.GetOnlineUsers},
	})
}
