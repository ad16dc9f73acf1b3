package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"barterhub/pkg/logger"
)

// HealthCheck reports a dependency failure as a non-nil error.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	now     func() time.Time
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// CheckHealth runs every registered check and answers 503 when any fails.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			logger.Warn("Health check %s failed: %v", check.Name, err)
			results[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}

	label := "ok"
	if status != http.StatusOK {
		label = "degraded"
	}

	return c.JSON(status, map[string]interface{}{
		"status": label,
		"checks": results,
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}
