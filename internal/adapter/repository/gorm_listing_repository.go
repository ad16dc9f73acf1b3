package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type gormListingRepository struct {
	db *gorm.DB
}

func NewGormListingRepository(db *gorm.DB) repository.ListingRepository {
	return &gormListingRepository{db: db}
}

func (r *gormListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	if listing.Currency == "" {
		listing.Currency = "NGN"
	}
	if listing.Status == "" {
		listing.Status = entity.ListingStatusActive
	}
	return storageError("CreateListing", "Listing", r.db.WithContext(ctx).Create(listing).Error)
}

func (r *gormListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	var listing entity.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, storageError("GetListingByID", "Listing", err)
	}
	return &listing, nil
}

func (r *gormListingRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Listing, error) {
	out := make(map[string]*entity.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var listings []*entity.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, storageError("GetListingsByIDs", "Listing", err)
	}
	for _, l := range listings {
		out[l.ID] = l
	}
	return out, nil
}
