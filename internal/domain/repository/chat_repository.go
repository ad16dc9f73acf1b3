package repository

import (
	"context"
	"time"

	"barterhub/internal/domain/entity"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// FindActiveBetween returns the active chat for the unordered pair
	// (a, b) or a NOT_FOUND error.
	FindActiveBetween(ctx context.Context, a, b string) (*entity.Chat, error)
	// ListActiveByUser returns active chats where userID is either
	// participant, newest lastMessageAt first.
	ListActiveByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)
	UpdateLastMessageAt(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
}
