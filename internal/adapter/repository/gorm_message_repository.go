package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type gormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	return storageError("CreateMessage", "Message", r.db.WithContext(ctx).Create(message).Error)
}

func (r *gormMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	var message entity.Message
	if err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, storageError("GetMessageByID", "Message", err)
	}
	return &message, nil
}

func (r *gormMessageRepository) ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("chat_id = ? AND is_deleted = ?", chatID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("CountChatMessages", "Message", err)
	}

	var messages []*entity.Message
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		return nil, 0, storageError("ListChatMessages", "Message", err)
	}
	return messages, total, nil
}

func (r *gormMessageRepository) LatestByChat(ctx context.Context, chatIDs []string) (map[string]*entity.Message, error) {
	out := make(map[string]*entity.Message, len(chatIDs))
	for _, chatID := range chatIDs {
		var message entity.Message
		err := r.db.WithContext(ctx).
			Where("chat_id = ? AND is_deleted = ?", chatID, false).
			Order("created_at DESC").Order("id DESC").
			Limit(1).
			Find(&message).Error
		if err != nil {
			return nil, storageError("LatestChatMessage", "Message", err)
		}
		if message.ID != "" {
			out[chatID] = &message
		}
	}
	return out, nil
}

func (r *gormMessageRepository) CountUnread(ctx context.Context, chatID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ? AND is_deleted = ?", chatID, userID, false, false).
		Count(&count).Error
	if err != nil {
		return 0, storageError("CountUnreadMessages", "Message", err)
	}
	return count, nil
}

func (r *gormMessageRepository) MarkRead(ctx context.Context, chatID, readerID string, messageIDs []string, at time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&entity.Message{}).
			Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false)
		if len(messageIDs) > 0 {
			query = query.Where("id IN ?", messageIDs)
		}
		if err := query.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&entity.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"is_read": true, "read_at": at, "updated_at": at}).Error
	})
	if err != nil {
		return nil, storageError("MarkMessagesRead", "Message", err)
	}
	return ids, nil
}
