package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
)

// SetupDevRouter is only mounted when running in development.
func SetupDevRouter(e *echo.Echo, h *handler.DevTokenHandler) {
	register(e.Group("/v1/dev"), []Route{
		{Method: http.MethodPost, Path: "/token", Handler: h.GenerateToken},
	})
}
