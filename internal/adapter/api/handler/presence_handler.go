package handler

import (
	"github.com/labstack/echo/v4"

	"barterhub/internal/infrastructure/presence"
	"barterhub/pkg/response"
)

type PresenceHandler struct {
	registry presence.Registry
}

func NewPresenceHandler(registry presence.Registry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// GetOnlineUsers returns every user with a live connection.
func (h *PresenceHandler) GetOnlineUsers(c echo.Context) error {
	ids, err := h.registry.OnlineUserIDs(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"user_ids": ids,
		"count":    len(ids),
	})
}
