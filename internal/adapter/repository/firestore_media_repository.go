package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type firestoreMediaRepository struct {
	client *firestore.Client
}

func NewFirestoreMediaRepository(client *firestore.Client) repository.MediaRepository {
	return &firestoreMediaRepository{client: client}
}

func (r *firestoreMediaRepository) Create(ctx context.Context, media *entity.Media) error {
	if media.ID == "" {
		media.ID = uuid.New().String()
	}
	if media.ModerationStatus == "" {
		media.ModerationStatus = entity.ModerationPending
	}
	if media.ProcessingStatus == "" {
		media.ProcessingStatus = entity.ProcessingPending
	}
	now := time.Now()
	media.CreatedAt = now
	media.UpdatedAt = now

	_, err := r.client.Collection(mediaCollection).Doc(media.ID).Set(ctx, media)
	return firestoreError("create media", "Media", err)
}

func (r *firestoreMediaRepository) GetByID(ctx context.Context, id string) (*entity.Media, error) {
	var media entity.Media
	if err := getDocument(ctx, r.client.Collection(mediaCollection).Doc(id), "Media", &media); err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *firestoreMediaRepository) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]*entity.Media, error) {
	out := make(map[string][]*entity.Media)
	// "in" filters accept at most 30 values.
	for start := 0; start < len(messageIDs); start += 30 {
		end := start + 30
		if end > len(messageIDs) {
			end = len(messageIDs)
		}
		query := r.client.Collection(mediaCollection).Where("messageId", "in", messageIDs[start:end])
		items, err := collect[entity.Media](ctx, query, "list media by message")
		if err != nil {
			return nil, err
		}
		for _, m := range items {
			if m.MessageID != nil {
				out[*m.MessageID] = append(out[*m.MessageID], m)
			}
		}
	}
	return out, nil
}

func (r *firestoreMediaRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Media, int64, error) {
	items, err := collect[entity.Media](ctx, r.client.Collection(mediaCollection).Where("ownerId", "==", ownerID), "list media by owner")
	if err != nil {
		return nil, 0, err
	}
	sortDesc(items, func(m *entity.Media) int64 { return m.CreatedAt.UnixNano() })
	return paginate(items, limit, offset), int64(len(items)), nil
}

func (r *firestoreMediaRepository) Delete(ctx context.Context, id string) error {
	ref := r.client.Collection(mediaCollection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		return firestoreError("get media", "Media", err)
	}
	_, err := ref.Delete(ctx)
	return firestoreError("delete media", "Media", err)
}
