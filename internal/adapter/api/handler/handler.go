package handler

import (
	"github.com/labstack/echo/v4"

	"barterhub/internal/domain/entity"
	"barterhub/internal/usecase"
	"barterhub/pkg/errors"
)

// ChatNotifier pushes REST-originated chat changes to live connections.
type ChatNotifier interface {
	ChatCreated(chat *usecase.ChatResponse, recipientID string)
	MessageSent(result *usecase.SendMessageResult)
	MessagesRead(result *usecase.MarkReadResult)
}

// currentUser returns the user stored by the auth middleware.
func currentUser(c echo.Context) (*entity.User, error) {
	user, ok := c.Get("user").(*entity.User)
	if !ok || user == nil {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	return user, nil
}

func currentUserID(c echo.Context) (string, error) {
	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}

// bindAndValidate decodes the request body into req and validates it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	return c.Validate(req)
}
