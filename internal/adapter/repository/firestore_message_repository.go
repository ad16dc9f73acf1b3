package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{client: client}
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.UpdatedAt = message.CreatedAt

	_, err := r.client.Collection(messagesCollection).Doc(message.ID).Set(ctx, message)
	return firestoreError("create message", "Message", err)
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	var message entity.Message
	if err := getDocument(ctx, r.client.Collection(messagesCollection).Doc(id), "Message", &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *firestoreMessageRepository) byChat(chatID string) firestore.Query {
	return r.client.Collection(messagesCollection).
		Where("chatId", "==", chatID).
		Where("isDeleted", "==", false)
}

func (r *firestoreMessageRepository) ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	countDocs, err := r.byChat(chatID).Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, firestoreError("count messages", "Message", err)
	}

	query := r.byChat(chatID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	messages, err := collect[entity.Message](ctx, query, "list messages")
	if err != nil {
		return nil, 0, err
	}
	return messages, int64(len(countDocs)), nil
}

func (r *firestoreMessageRepository) LatestByChat(ctx context.Context, chatIDs []string) (map[string]*entity.Message, error) {
	out := make(map[string]*entity.Message, len(chatIDs))
	for _, chatID := range chatIDs {
		messages, err := collect[entity.Message](ctx, r.byChat(chatID).OrderBy("createdAt", firestore.Desc).Limit(1), "latest message")
		if err != nil {
			return nil, err
		}
		if len(messages) > 0 {
			out[chatID] = messages[0]
		}
	}
	return out, nil
}

func (r *firestoreMessageRepository) CountUnread(ctx context.Context, chatID, userID string) (int64, error) {
	messages, err := collect[entity.Message](ctx, r.byChat(chatID).Where("isRead", "==", false), "count unread")
	if err != nil {
		return 0, err
	}
	var n int64
	for _, m := range messages {
		if m.SenderID != userID {
			n++
		}
	}
	return n, nil
}

// maxTxWrites is Firestore's per-transaction write limit.
const maxTxWrites = 500

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, chatID, readerID string, messageIDs []string, at time.Time) ([]string, error) {
	query := r.client.Collection(messagesCollection).
		Where("chatId", "==", chatID).
		Where("isRead", "==", false)
	unread, err := collect[entity.Message](ctx, query, "mark read")
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, ids := range chunk(readTargets(unread, readerID, messageIDs), maxTxWrites) {
		done, err := r.markChunk(ctx, ids, at)
		if err != nil {
			return changed, err
		}
		changed = append(changed, done...)
	}
	return changed, nil
}

// markChunk re-reads ids inside one transaction and flips the ones still unread.
func (r *firestoreMessageRepository) markChunk(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.client.Collection(messagesCollection).Doc(id)
	}

	var changed []string
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = changed[:0]
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			var m entity.Message
			if err := snap.DataTo(&m); err != nil {
				return err
			}
			if m.IsRead {
				continue
			}
			if err := tx.Update(refs[i], []firestore.Update{
				{Path: "isRead", Value: true},
				{Path: "readAt", Value: at},
				{Path: "updatedAt", Value: at},
			}); err != nil {
				return err
			}
			changed = append(changed, ids[i])
		}
		return nil
	})
	if err != nil {
		return nil, firestoreError("mark read", "Message", err)
	}
	return changed, nil
}

// readTargets picks the unread messages readerID may mark: never their own,
// and only the requested ids when any are given.
func readTargets(unread []*entity.Message, readerID string, messageIDs []string) []string {
	wanted := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}

	var ids []string
	for _, m := range unread {
		if m.SenderID == readerID || (len(wanted) > 0 && !wanted[m.ID]) {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
