package handler

import (
	"github.com/labstack/echo/v4"

	"barterhub/internal/domain/entity"
	"barterhub/internal/usecase"
	"barterhub/pkg/response"
	"barterhub/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
	notifier    ChatNotifier
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, notifier ChatNotifier) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
		notifier:    notifier,
	}
}

type sendMessageRequest struct {
	Type     string                 `json:"type" validate:"omitempty,oneof=TEXT IMAGE AUDIO VIDEO DOCUMENT LOCATION SYSTEM"`
	Content  string                 `json:"content" validate:"max=4000"`
	MediaURL string                 `json:"media_url,omitempty" validate:"omitempty,url"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type markReadRequest struct {
	MessageIDs []string `json:"message_ids,omitempty" validate:"omitempty,max=500,dive,required"`
}

// CreateChat opens (or returns the existing) direct chat with a recipient
func (h *ChatHandler) CreateChat(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req usecase.CreateChatInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatUseCase.CreateChat(c.Request().Context(), userID, req)
	if err != nil {
		return response.Error(c, err)
	}

	if result.Created {
		h.notifier.ChatCreated(result.Chat, req.RecipientID)
	}
	if result.InitialMessage != nil {
		h.notifier.MessageSent(result.InitialMessage)
	}

	if result.Created {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}

// GetUserChats lists the caller's active chats
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	p := utils.GetPaginationParams(c)
	chats, total, err := h.chatUseCase.GetUserChats(c.Request().Context(), userID, p.Page, p.PageSize)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, chats, total, p.Page, p.PageSize)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.GetChatByID(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) DeleteChat(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.DeleteChat(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"chat_id":   chat.ID,
		"is_active": chat.IsActive,
	})
}

func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	p := utils.GetPaginationParams(c)
	messages, total, err := h.chatUseCase.GetChatMessages(c.Request().Context(), c.Param("id"), userID, p.Page, p.PageSize)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, p.Page, p.PageSize)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ChatID:   c.Param("id"),
		Type:     entity.MessageType(req.Type),
		Content:  req.Content,
		MediaURL: req.MediaURL,
		Metadata: req.Metadata,
	})
	if err != nil {
		return response.Error(c, err)
	}

	h.notifier.MessageSent(result)
	return response.Created(c, result.Message)
}

// MarkChatAsRead marks the other participant's messages as read. An empty
// body marks everything.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req markReadRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return response.Error(c, err)
		}
	}

	result, err := h.chatUseCase.MarkMessagesAsRead(c.Request().Context(), c.Param("id"), userID, req.MessageIDs)
	if err != nil {
		return response.Error(c, err)
	}

	h.notifier.MessagesRead(result)
	return response.Success(c, result)
}
