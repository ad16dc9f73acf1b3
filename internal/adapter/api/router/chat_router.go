package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"barterhub/internal/adapter/api/handler"
)

func ChatRoutes(h *handler.ChatHandler) []Route {
	return []Route{
		{Method: http.MethodPost, Path: "", Handler: h.CreateChat},
		{Method: http.MethodGet, Path: "", Handler: h.GetUserChats},
		{Method: http.MethodGet, Path: "/:id", Handler: h.GetChatByID},
		{Method: http.MethodDelete, Path: "/:id", Handler: h.DeleteChat},
		{Method: http.MethodPut, Path: "/:id/read", Handler: h.MarkChatAsRead},
		{Method: http.MethodGet, Path: "/:id/messages", Handler: h.GetChatMessages},
		{Method: http.MethodPost, Path: "/:id/messages", Handler: h.SendMessage},
	}
}

// SetupChatRouter mounts /v1/chats. Every route requires authentication.
func SetupChatRouter(e *echo.Echo, h *handler.ChatHandler, authenticate echo.MiddlewareFunc) {
	register(e.Group("/v1/chats", authenticate), ChatRoutes(h))
}
