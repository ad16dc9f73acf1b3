package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormrepo "barterhub/internal/adapter/repository"
	"barterhub/internal/domain/entity"
	"barterhub/internal/infrastructure/auth"
	"barterhub/internal/infrastructure/database"
)

func newAuthEcho(t *testing.T) (*echo.Echo, *auth.JWTAuthenticator) {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	users := gormrepo.NewGormUserRepository(db)
	for _, u := range []*entity.User{
		{ID: "u1", Email: "u1@example.ng", Username: "ada", IsActive: true},
		{ID: "blocked", Email: "b@example.ng", Username: "b", IsActive: true, IsBlocked: true},
		{ID: "admin", Email: "a@example.ng", Username: "admin", Role: entity.RoleAdmin, IsActive: true},
	} {
		require.NoError(t, users.Create(context.Background(), u))
	}

	jwtAuth := auth.NewJWTAuthenticator("test-secret", "barterhub", time.Hour)
	m := NewAuthMiddleware(jwtAuth, users)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		user := c.Get("user").(*entity.User)
		return c.String(http.StatusOK, c.Get("uid").(string)+":"+user.Username)
	}, m.Authenticate)
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, m.Authenticate, AdminOnly)
	return e, jwtAuth
}

func call(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, a *auth.JWTAuthenticator, uid string) string {
	t.Helper()
	tok, err := a.IssueToken(context.Background(), uid)
	require.NoError(t, err)
	return tok
}

func TestAuthenticate(t *testing.T) {
	e, jwtAuth := newAuthEcho(t)

	rec := call(e, "/me", "Bearer "+token(t, jwtAuth, "u1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1:ada", rec.Body.String())

	for _, tc := range []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"unknown user", "Bearer " + token(t, jwtAuth, "ghost"), http.StatusUnauthorized},
		{"blocked user", "Bearer " + token(t, jwtAuth, "blocked"), http.StatusForbidden},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, call(e, "/me", tc.header).Code)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	e, jwtAuth := newAuthEcho(t)

	assert.Equal(t, http.StatusForbidden, call(e, "/admin", "Bearer "+token(t, jwtAuth, "u1")).Code)
	assert.Equal(t, http.StatusNoContent, call(e, "/admin", "Bearer "+token(t, jwtAuth, "admin")).Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "/admin", "").Code)
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.Middleware())

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
	rec := hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit("10.0.0.2").Code)
	assert.Equal(t, 2, rl.VisitorCount())
}

func TestRateLimiter_SweepDropsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.get("10.0.0.1")
	now = now.Add(90 * time.Second)
	rl.get("10.0.0.2")
	now = now.Add(90 * time.Second)
	rl.sweep()

	assert.Equal(t, 1, rl.VisitorCount())
}
