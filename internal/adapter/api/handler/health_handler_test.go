package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHealth(t *testing.T, h *HealthHandler) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CheckHealth(e.NewContext(req, rec)))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthHandler_AllChecksPass(t *testing.T) {
	h := NewHealthHandler(HealthCheck{Name: "database", Check: func(context.Context) error { return nil }})

	code, body := runHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]interface{}{"database": "ok"}, body["checks"])
}

func TestHealthHandler_FailingCheckReturns503(t *testing.T) {
	h := NewHealthHandler(
		HealthCheck{Name: "database", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return stderrors.New("connection refused") }},
	)

	code, body := runHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "connection refused", checks["redis"])
}

func TestHealthHandler_NoChecks(t *testing.T) {
	code, body := runHealth(t, NewHealthHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["time"])
}
