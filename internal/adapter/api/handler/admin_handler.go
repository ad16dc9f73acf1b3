package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"barterhub/internal/infrastructure/presence"
	"barterhub/internal/infrastructure/storage"
	"barterhub/pkg/response"
)

// Broadcaster sends platform-wide notices to every live connection.
type Broadcaster interface {
	HolidayGreeting(holiday, message string)
	NetworkStatus(status, message string)
}

// ConnectionCounter reports live sockets on this instance.
type ConnectionCounter interface {
	ConnectionCount() int
}

type AdminHandler struct {
	storage     *storage.Factory
	registry    presence.Registry
	broadcaster Broadcaster
	connections ConnectionCounter
}

func NewAdminHandler(factory *storage.Factory, registry presence.Registry, broadcaster Broadcaster, connections ConnectionCounter) *AdminHandler {
	return &AdminHandler{
		storage:     factory,
		registry:    registry,
		broadcaster: broadcaster,
		connections: connections,
	}
}

type holidayGreetingRequest struct {
	Holiday string `json:"holiday" validate:"required,max=64"`
	Message string `json:"message" validate:"required,max=500"`
}

type networkStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=online degraded maintenance"`
	Message string `json:"message" validate:"max=500"`
}

// GetStorageHealth probes every storage backend.
func (h *AdminHandler) GetStorageHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	results := h.storage.HealthCheck(ctx)
	healthy := true
	for _, r := range results {
		healthy = healthy && r.Healthy
	}

	return response.Success(c, map[string]interface{}{
		"healthy":  healthy,
		"backends": results,
	})
}

func (h *AdminHandler) GetPresence(c echo.Context) error {
	ctx := c.Request().Context()
	ids, err := h.registry.OnlineUserIDs(ctx)
	if err != nil {
		return response.Error(c, err)
	}

	entries := make([]presence.Entry, 0, len(ids))
	for _, id := range ids {
		entry, ok, err := h.registry.Get(ctx, id)
		if err != nil {
			return response.Error(c, err)
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	return response.Success(c, map[string]interface{}{
		"online":            entries,
		"count":             len(entries),
		"local_connections": h.connections.ConnectionCount(),
	})
}

func (h *AdminHandler) SendHolidayGreeting(c echo.Context) error {
	var req holidayGreetingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	h.broadcaster.HolidayGreeting(req.Holiday, req.Message)
	return response.Success(c, map[string]string{"message": "Greeting broadcast"})
}

func (h *AdminHandler) SendNetworkStatus(c echo.Context) error {
	var req networkStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	h.broadcaster.NetworkStatus(req.Status, req.Message)
	return response.Success(c, map[string]string{"message": "Status broadcast"})
}
