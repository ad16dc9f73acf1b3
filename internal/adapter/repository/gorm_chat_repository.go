package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type gormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) repository.ChatRepository {
	return &gormChatRepository{db: db}
}

func (r *gormChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	return storageError("CreateChat", "Chat", r.db.WithContext(ctx).Create(chat).Error)
}

func (r *gormChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	var chat entity.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, storageError("GetChatByID", "Chat", err)
	}
	return &chat, nil
}

func (r *gormChatRepository) FindActiveBetween(ctx context.Context, a, b string) (*entity.Chat, error) {
	var chat entity.Chat
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").
		First(&chat).Error
	if err != nil {
		return nil, storageError("FindActiveChatBetween", "Chat", err)
	}
	return &chat, nil
}

func (r *gormChatRepository) ListActiveByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Chat{}).
		Where("is_active = ?", true).
		Where("sender_id = ? OR receiver_id = ?", userID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("CountUserChats", "Chat", err)
	}

	var chats []*entity.Chat
	err := query.Order("last_message_at DESC").Limit(limit).Offset(offset).Find(&chats).Error
	if err != nil {
		return nil, 0, storageError("ListUserChats", "Chat", err)
	}
	return chats, total, nil
}

func (r *gormChatRepository) UpdateLastMessageAt(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.Chat{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_message_at": at, "updated_at": time.Now()})
	return storageError("UpdateChatLastMessageAt", "Chat", res.Error)
}

func (r *gormChatRepository) Deactivate(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&entity.Chat{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return storageError("DeactivateChat", "Chat", res.Error)
	}
	if res.RowsAffected == 0 {
		return storageError("DeactivateChat", "Chat", gorm.ErrRecordNotFound)
	}
	return nil
}
