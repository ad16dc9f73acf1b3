package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"barterhub/internal/domain/repository"
	"barterhub/internal/usecase"
	"barterhub/pkg/errors"
	"barterhub/pkg/response"
)

type AuthMiddleware struct {
	verifier usecase.TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthMiddleware(verifier usecase.TokenVerifier, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// Authenticate verifies the bearer token and stores "uid" and "user" on
// the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		ctx := c.Request().Context()
		uid, err := m.verifier.VerifyToken(ctx, strings.TrimSpace(parts[1]))
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		user, err := m.userRepo.GetByID(ctx, uid)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return response.Error(c, errors.Unauthorized("User not found", err))
			}
			return response.Error(c, err)
		}
		if !user.CanChat() {
			return response.Error(c, errors.Forbidden("Account is inactive or blocked", nil))
		}

		c.Set("uid", uid)
		c.Set("user", user)

		return next(c)
	}
}
