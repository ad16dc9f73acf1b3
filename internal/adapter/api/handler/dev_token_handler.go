package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
	"barterhub/pkg/errors"
	"barterhub/pkg/response"
)

// TokenIssuer mints tokens the configured verifier accepts.
type TokenIssuer interface {
	IssueToken(ctx context.Context, userID string) (string, error)
}

// DevTokenHandler is mounted only in development.
type DevTokenHandler struct {
	issuer   TokenIssuer
	userRepo repository.UserRepository
}

func NewDevTokenHandler(issuer TokenIssuer, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		issuer:   issuer,
		userRepo: userRepo,
	}
}

type devTokenRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	Username string `json:"username" validate:"omitempty,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// GenerateToken creates the user when missing and returns a token for it.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	user, err := h.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			return response.Error(c, err)
		}

		user = &entity.User{
			ID:        req.UserID,
			Username:  req.Username,
			Email:     req.Email,
			Role:      req.Role,
			IsActive:  true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if user.Username == "" {
			user.Username = req.UserID
		}
		if user.Email == "" {
			user.Email = req.UserID + "@dev.barterhub.local"
		}
		if user.Role == "" {
			user.Role = entity.RoleUser
		}
		if err := h.userRepo.Create(ctx, user); err != nil {
			return response.Error(c, err)
		}
	}

	token, err := h.issuer.IssueToken(ctx, user.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  user.Summary(),
	})
}
