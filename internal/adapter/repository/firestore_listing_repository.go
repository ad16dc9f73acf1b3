package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{client: client}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	if listing.Currency == "" {
		listing.Currency = "NGN"
	}
	if listing.Status == "" {
		listing.Status = entity.ListingStatusActive
	}
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	_, err := r.client.Collection(listingsCollection).Doc(listing.ID).Set(ctx, listing)
	return firestoreError("create listing", "Listing", err)
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	var listing entity.Listing
	if err := getDocument(ctx, r.client.Collection(listingsCollection).Doc(id), "Listing", &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *firestoreListingRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Listing, error) {
	return getAllByID(ctx, r.client, listingsCollection, ids, func(l *entity.Listing) string { return l.ID })
}
