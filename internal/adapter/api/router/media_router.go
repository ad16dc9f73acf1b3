package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
)

func MediaRoutes(h *handler.MediaHandler) []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/upload", Handler: h.UploadMedia},
		{Method: http.MethodGet, Path: "", Handler: h.ListMyMedia},
		{Method: http.MethodGet, Path: "/:id", Handler: h.GetMedia},
		{Method: http.MethodGet, Path: "/:id/content", Handler: h.GetMediaContent},
		{Method: http.MethodDelete, Path: "/:id", Handler: h.DeleteMedia},
	}
}

func SetupMediaRouter(e *echo.Echo, h *handler.MediaHandler, authenticate echo.MiddlewareFunc) {
	register(e.Group("/v1/media", authenticate), MediaRoutes(h))
}
