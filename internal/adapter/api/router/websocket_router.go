package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts the socket endpoint. Authentication happens
// during the handshake, not in middleware.
func SetupWebSocketRouter(e *echo.Echo, path string, h *handler.WebSocketHandler) {
	register(e, []Route{
		{Method: http.MethodGet, Path: path, Handler: h.HandleWebSocket},
	})
}
