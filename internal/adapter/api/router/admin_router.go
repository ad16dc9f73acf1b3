package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
	"barterhub/internal/adapter/api/middleware"
)

func AdminRoutes(h *handler.AdminHandler) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/storage/health", Handler: h.GetStorageHealth},
		{Method: http.MethodGet, Path: "/presence", Handler: h.GetPresence},
		{Method: http.MethodPost, Path: "/broadcasts/holiday-greeting", Handler: h.SendHolidayGreeting},
		{Method: http.MethodPost, Path: "/broadcasts/network-status", Handler: h.SendNetworkStatus},
	}
}

func SetupAdminRouter(e *echo.Echo, h *handler.AdminHandler, authenticate echo.MiddlewareFunc) {
	register(e.Group("/v1/admin", authenticate, middleware.AdminOnly), AdminRoutes(h))
}
