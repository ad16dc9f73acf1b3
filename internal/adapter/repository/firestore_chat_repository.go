package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
	"barterhub/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := r.client.Collection(chatsCollection).Doc(chat.ID).Set(ctx, chat)
	return firestoreError("create chat", "Chat", err)
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	var chat entity.Chat
	if err := getDocument(ctx, r.client.Collection(chatsCollection).Doc(id), "Chat", &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *firestoreChatRepository) FindActiveBetween(ctx context.Context, a, b string) (*entity.Chat, error) {
	// Firestore has no OR across fields, so both orientations are queried.
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		query := r.client.Collection(chatsCollection).
			Where("senderId", "==", pair[0]).
			Where("receiverId", "==", pair[1]).
			Where("isActive", "==", true).
			Limit(1)
		chats, err := collect[entity.Chat](ctx, query, "find chat between")
		if err != nil {
			return nil, err
		}
		if len(chats) > 0 {
			return chats[0], nil
		}
	}
	return nil, errors.NotFound("Chat", nil)
}

func (r *firestoreChatRepository) ListActiveByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	var all []*entity.Chat
	for _, field := range []string{"senderId", "receiverId"} {
		query := r.client.Collection(chatsCollection).
			Where(field, "==", userID).
			Where("isActive", "==", true)
		chats, err := collect[entity.Chat](ctx, query, "list user chats")
		if err != nil {
			return nil, 0, err
		}
		all = append(all, chats...)
	}

	sortDesc(all, func(c *entity.Chat) int64 { return c.LastMessageAt.UnixNano() })
	return paginate(all, limit, offset), int64(len(all)), nil
}

func (r *firestoreChatRepository) UpdateLastMessageAt(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.Collection(chatsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessageAt", Value: at},
		{Path: "updatedAt", Value: time.Now()},
	})
	return firestoreError("update chat", "Chat", err)
}

func (r *firestoreChatRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.client.Collection(chatsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: false},
		{Path: "updatedAt", Value: time.Now()},
	})
	return firestoreError("deactivate chat", "Chat", err)
}
