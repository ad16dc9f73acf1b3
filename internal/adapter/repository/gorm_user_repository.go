package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) repository.UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.Role == "" {
		user.Role = entity.RoleUser
	}
	return storageError("CreateUser", "User", r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, storageError("GetUserByID", "User", err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	out := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []*entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storageError("GetUsersByIDs", "User", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *gormUserRepository) Update(ctx context.Context, user *entity.User) error {
	return storageError("UpdateUser", "User", r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUserRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active_at", at)
	return storageError("TouchLastActive", "User", res.Error)
}
