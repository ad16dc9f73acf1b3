package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type gormMediaRepository struct {
	db *gorm.DB
}

func NewGormMediaRepository(db *gorm.DB) repository.MediaRepository {
	return &gormMediaRepository{db: db}
}

func (r *gormMediaRepository) Create(ctx context.Context, media *entity.Media) error {
	if media.ID == "" {
		media.ID = uuid.New().String()
	}
	if media.ModerationStatus == "" {
		media.ModerationStatus = entity.ModerationPending
	}
	if media.ProcessingStatus == "" {
		media.ProcessingStatus = entity.ProcessingPending
	}
	return storageError("CreateMedia", "Media", r.db.WithContext(ctx).Create(media).Error)
}

func (r *gormMediaRepository) GetByID(ctx context.Context, id string) (*entity.Media, error) {
	var media entity.Media
	if err := r.db.WithContext(ctx).First(&media, "id = ?", id).Error; err != nil {
		return nil, storageError("GetMediaByID", "Media", err)
	}
	return &media, nil
}

func (r *gormMediaRepository) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]*entity.Media, error) {
	out := make(map[string][]*entity.Media)
	if len(messageIDs) == 0 {
		return out, nil
	}

	var items []*entity.Media
	err := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).Order("created_at ASC").Find(&items).Error
	if err != nil {
		return nil, storageError("ListMediaByMessages", "Media", err)
	}
	for _, m := range items {
		if m.MessageID != nil {
			out[*m.MessageID] = append(out[*m.MessageID], m)
		}
	}
	return out, nil
}

func (r *gormMediaRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Media, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Media{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("CountOwnerMedia", "Media", err)
	}

	var items []*entity.Media
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, storageError("ListOwnerMedia", "Media", err)
	}
	return items, total, nil
}

func (r *gormMediaRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&entity.Media{}, "id = ?", id)
	if res.Error != nil {
		return storageError("DeleteMedia", "Media", res.Error)
	}
	if res.RowsAffected == 0 {
		return storageError("DeleteMedia", "Media", gorm.ErrRecordNotFound)
	}
	return nil
}
