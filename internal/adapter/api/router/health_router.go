package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
	"barterhub/internal/infrastructure/metrics"
)

func SetupHealthRouter(e *echo.Echo, h *handler.HealthHandler) {
	register(e, []Route{
		{Method: http.MethodGet, Path: "/health", Handler: h.CheckHealth},
		{Method: http.MethodGet, Path: "/metrics", Handler: metrics.Handler()},
	})
}
