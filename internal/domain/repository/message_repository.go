package repository

import (
	"context"
	"time"

	"barterhub/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	// ListByChat returns non-deleted messages newest first.
	ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
	// LatestByChat returns the newest non-deleted message per chat id.
	LatestByChat(ctx context.Context, chatIDs []string) (map[string]*entity.Message, error)
	// CountUnread counts unread, non-deleted messages in chatID not authored
	// by userID.
	CountUnread(ctx context.Context, chatID, userID string) (int64, error)
	// MarkRead flags unread messages in chatID not authored by readerID as
	// read at the given time. A non-empty messageIDs narrows the update to
	// those ids. It returns the ids actually changed.
	MarkRead(ctx context.Context, chatID, readerID string, messageIDs []string, at time.Time) ([]string, error)
}
