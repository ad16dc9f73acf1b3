package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
	"barterhub/internal/infrastructure/metrics"
	"barterhub/internal/infrastructure/ratelimit"
	"barterhub/pkg/errors"
	"barterhub/pkg/logger"
	"barterhub/pkg/utils"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	mediaRepo   repository.MediaRepository
	limiter     ratelimit.Limiter
	filter      *ContentFilter
	publisher   EventPublisher
	now         func() time.Time

	pairLocks *keyedMutex
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	mediaRepo repository.MediaRepository,
	limiter ratelimit.Limiter,
	publisher EventPublisher,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		mediaRepo:   mediaRepo,
		limiter:     limiter,
		filter:      NewContentFilter(DefaultBlockedTerms),
		publisher:   publisher,
		now:         time.Now,
		pairLocks:   newKeyedMutex(),
	}
}

// WithClock replaces the time source.
func (uc *ChatUseCase) WithClock(now func() time.Time) *ChatUseCase {
	uc.now = now
	return uc
}

func (uc *ChatUseCase) WithFilter(filter *ContentFilter) *ChatUseCase {
	uc.filter = filter
	return uc
}

type CreateChatInput struct {
	RecipientID    string  `json:"recipient_id" validate:"required"`
	ListingID      *string `json:"listing_id,omitempty"`
	OfferID        *string `json:"offer_id,omitempty"`
	InitialMessage string  `json:"initial_message,omitempty" validate:"max=4000"`
}

type SendMessageInput struct {
	ChatID   string                 `json:"chat_id" validate:"required"`
	Type     entity.MessageType     `json:"type,omitempty"`
	Content  string                 `json:"content" validate:"max=4000"`
	MediaURL string                 `json:"media_url,omitempty" validate:"omitempty,url"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type ChatResponse struct {
	*entity.Chat
	UnreadCount int64                  `json:"unread_count"`
	LastMessage *entity.Message        `json:"last_message,omitempty"`
	OtherUser   *entity.UserSummary    `json:"other_user,omitempty"`
	Listing     *entity.ListingSummary `json:"listing,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Media  []*entity.Media     `json:"media,omitempty"`
	Sender *entity.UserSummary `json:"sender,omitempty"`
}

type SendMessageResult struct {
	Message *MessageResponse `json:"message"`
	Chat    *entity.Chat     `json:"chat"`
}

type CreateChatResult struct {
	Chat           *ChatResponse      `json:"chat"`
	Created        bool               `json:"created"`
	InitialMessage *SendMessageResult `json:"initial_message,omitempty"`
}

type MarkReadResult struct {
	ChatID     string    `json:"chat_id"`
	ReaderID   string    `json:"reader_id"`
	MessageIDs []string  `json:"message_ids"`
	ReadAt     time.Time `json:"read_at"`
}

// GetOrCreateDirectChat returns the active chat between senderID and
// recipientID, creating it when none exists. created reports which.
func (uc *ChatUseCase) GetOrCreateDirectChat(ctx context.Context, senderID, recipientID string, listingID, offerID *string) (*ChatResponse, bool, error) {
	if senderID == recipientID {
		return nil, false, errors.BadRequest("You cannot create a chat with yourself", nil)
	}

	unlock := uc.pairLocks.Lock(pairKey(senderID, recipientID))
	defer unlock()

	existing, err := uc.chatRepo.FindActiveBetween(ctx, senderID, recipientID)
	if err == nil {
		resp, err := uc.toChatResponse(ctx, existing, senderID)
		return resp, false, err
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, false, err
	}

	if listingID != nil && *listingID != "" {
		if _, err := uc.listingRepo.GetByID(ctx, *listingID); err != nil {
			return nil, false, err
		}
	} else {
		listingID = nil
	}
	if offerID != nil && *offerID == "" {
		offerID = nil
	}

	now := uc.now().UTC()
	chat := &entity.Chat{
		ID:            uuid.NewString(),
		SenderID:      senderID,
		ReceiverID:    recipientID,
		ListingID:     listingID,
		OfferID:       offerID,
		LastMessageAt: now,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		return nil, false, err
	}
	logger.Info("Chat %s created between %s and %s", chat.ID, senderID, recipientID)

	uc.publish(ctx, EventChatCreated, map[string]interface{}{
		"chat_id":     chat.ID,
		"sender_id":   chat.SenderID,
		"receiver_id": chat.ReceiverID,
		"listing_id":  chat.ListingID,
		"offer_id":    chat.OfferID,
	})

	resp, err := uc.toChatResponse(ctx, chat, senderID)
	return resp, true, err
}

// CreateChat validates the recipient, opens or reuses the direct chat and
// sends the optional initial message.
func (uc *ChatUseCase) CreateChat(ctx context.Context, senderID string, input CreateChatInput) (*CreateChatResult, error) {
	if senderID == input.RecipientID {
		return nil, errors.BadRequest("You cannot create a chat with yourself", nil)
	}
	if strings.TrimSpace(input.RecipientID) == "" {
		return nil, errors.BadRequest("Recipient is required", nil)
	}

	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.NotFound("Recipient", err)
		}
		return nil, err
	}
	if !recipient.CanChat() {
		return nil, errors.BadRequest("Recipient account is not active", nil)
	}

	chat, created, err := uc.GetOrCreateDirectChat(ctx, senderID, input.RecipientID, input.ListingID, input.OfferID)
	if err != nil {
		return nil, err
	}

	result := &CreateChatResult{Chat: chat, Created: created}
	if strings.TrimSpace(input.InitialMessage) != "" {
		sent, err := uc.SendMessage(ctx, senderID, SendMessageInput{
			ChatID:  chat.ID,
			Type:    entity.MessageTypeText,
			Content: input.InitialMessage,
		})
		if err != nil {
			return nil, err
		}
		result.InitialMessage = sent
		chat.LastMessageAt = sent.Chat.LastMessageAt
		chat.LastMessage = sent.Message.Message
	}
	return result, nil
}

// CheckAccess loads chatID and verifies userID participates in it.
func (uc *ChatUseCase) CheckAccess(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}
	return chat, nil
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, chatID, userID string) (*ChatResponse, error) {
	chat, err := uc.CheckAccess(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	return uc.toChatResponse(ctx, chat, userID)
}

// GetUserChats lists the caller's active chats, most recent activity first.
func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID string, page, limit int) ([]*ChatResponse, int64, error) {
	p := utils.NewPagination(page, limit)

	chats, total, err := uc.chatRepo.ListActiveByUser(ctx, userID, p.PageSize, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	if len(chats) == 0 {
		return []*ChatResponse{}, total, nil
	}

	chatIDs := make([]string, 0, len(chats))
	otherIDs := make([]string, 0, len(chats))
	var listingIDs []string
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
		otherIDs = append(otherIDs, c.OtherParticipant(userID))
		if c.ListingID != nil {
			listingIDs = append(listingIDs, *c.ListingID)
		}
	}

	latest, err := uc.messageRepo.LatestByChat(ctx, chatIDs)
	if err != nil {
		return nil, 0, err
	}
	users, err := uc.userRepo.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, 0, err
	}
	listings := map[string]*entity.Listing{}
	if len(listingIDs) > 0 {
		if listings, err = uc.listingRepo.GetByIDs(ctx, listingIDs); err != nil {
			return nil, 0, err
		}
	}

	out := make([]*ChatResponse, 0, len(chats))
	for _, c := range chats {
		unread, err := uc.messageRepo.CountUnread(ctx, c.ID, userID)
		if err != nil {
			return nil, 0, err
		}
		resp := &ChatResponse{
			Chat:        c,
			UnreadCount: unread,
			LastMessage: latest[c.ID],
			OtherUser:   users[c.OtherParticipant(userID)].Summary(),
		}
		if c.ListingID != nil {
			resp.Listing = listings[*c.ListingID].Summary()
		}
		out = append(out, resp)
	}
	return out, total, nil
}

// SendMessage filters, rate limits and persists a message from senderID.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*SendMessageResult, error) {
	chat, err := uc.CheckAccess(ctx, input.ChatID, senderID)
	if err != nil {
		return nil, err
	}
	if !chat.IsActive {
		return nil, errors.BadRequest("This chat has been deleted", nil)
	}

	msgType := input.Type
	if msgType == "" {
		msgType = entity.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, errors.BadRequest("Invalid message type", nil)
	}
	blank := strings.TrimSpace(input.Content) == ""
	if msgType == entity.MessageTypeText && blank {
		return nil, errors.BadRequest("Message content is required", nil)
	}
	if msgType != entity.MessageTypeText && blank && input.MediaURL == "" && len(input.Metadata) == 0 {
		return nil, errors.BadRequest("Message content or media is required", nil)
	}

	decision, err := uc.limiter.Allow(ctx, "send_message:"+senderID)
	if err != nil {
		return nil, errors.Internal("internal error, try again", err)
	}
	if !decision.Allowed {
		metrics.IncRateLimited()
		logger.Warn("SendMessage rate limited: user %s must wait %v", senderID, decision.RetryAfter)
		return nil, errors.TooManyRequests("Too many messages. Please slow down", decision.RetryAfter)
	}

	now := uc.now().UTC()
	message := &entity.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		SenderID:  senderID,
		Type:      msgType,
		Content:   uc.filter.Apply(input.Content),
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	if err := uc.chatRepo.UpdateLastMessageAt(ctx, chat.ID, now); err != nil {
		return nil, err
	}
	chat.LastMessageAt = now
	chat.UpdatedAt = now

	var media []*entity.Media
	if msgType != entity.MessageTypeText && input.MediaURL != "" {
		m := &entity.Media{
			ID:               uuid.NewString(),
			OwnerID:          senderID,
			MessageID:        &message.ID,
			Backend:          "external",
			URL:              input.MediaURL,
			MimeType:         msgType.MimeType(),
			ModerationStatus: entity.ModerationPending,
			ProcessingStatus: entity.ProcessingCompleted,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := uc.mediaRepo.Create(ctx, m); err != nil {
			return nil, err
		}
		media = append(media, m)
	}

	metrics.IncMessageSent(string(msgType))

	sender, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		logger.Warn("SendMessage: sender %s lookup failed: %v", senderID, err)
	}

	uc.publish(ctx, EventChatMessageSent, map[string]interface{}{
		"chat_id":      chat.ID,
		"message_id":   message.ID,
		"sender_id":    senderID,
		"recipient_id": chat.OtherParticipant(senderID),
		"type":         msgType,
		"created_at":   now,
	})

	return &SendMessageResult{
		Message: &MessageResponse{Message: message, Media: media, Sender: sender.Summary()},
		Chat:    chat,
	}, nil
}

// GetChatMessages returns non-deleted messages newest first.
func (uc *ChatUseCase) GetChatMessages(ctx context.Context, chatID, userID string, page, limit int) ([]*MessageResponse, int64, error) {
	chat, err := uc.CheckAccess(ctx, chatID, userID)
	if err != nil {
		return nil, 0, err
	}

	p := utils.NewPagination(page, limit)
	messages, total, err := uc.messageRepo.ListByChat(ctx, chat.ID, p.PageSize, p.Offset)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	media := map[string][]*entity.Media{}
	if len(ids) > 0 {
		if media, err = uc.mediaRepo.ListByMessageIDs(ctx, ids); err != nil {
			return nil, 0, err
		}
	}
	users, err := uc.userRepo.GetByIDs(ctx, chat.Participants())
	if err != nil {
		return nil, 0, err
	}

	out := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, &MessageResponse{
			Message: m,
			Media:   media[m.ID],
			Sender:  users[m.SenderID].Summary(),
		})
	}
	return out, total, nil
}

// MarkMessagesAsRead flags the other participant's unread messages as read.
// A non-empty messageIDs limits the update to those messages.
func (uc *ChatUseCase) MarkMessagesAsRead(ctx context.Context, chatID, userID string, messageIDs []string) (*MarkReadResult, error) {
	chat, err := uc.CheckAccess(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	changed, err := uc.messageRepo.MarkRead(ctx, chat.ID, userID, messageIDs, now)
	if err != nil {
		return nil, err
	}
	sort.Strings(changed)

	if len(changed) > 0 {
		uc.publish(ctx, EventChatMessagesRead, map[string]interface{}{
			"chat_id":     chat.ID,
			"reader_id":   userID,
			"message_ids": changed,
			"read_at":     now,
		})
	}

	return &MarkReadResult{
		ChatID:     chat.ID,
		ReaderID:   userID,
		MessageIDs: changed,
		ReadAt:     now,
	}, nil
}

// DeleteChat soft-deletes the chat. The row is shared, so it disappears for
// both participants.
func (uc *ChatUseCase) DeleteChat(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	chat, err := uc.CheckAccess(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.chatRepo.Deactivate(ctx, chat.ID); err != nil {
		return nil, err
	}
	chat.IsActive = false

	uc.publish(ctx, EventChatDeleted, map[string]interface{}{
		"chat_id":    chat.ID,
		"deleted_by": userID,
	})
	return chat, nil
}

func (uc *ChatUseCase) toChatResponse(ctx context.Context, chat *entity.Chat, userID string) (*ChatResponse, error) {
	unread, err := uc.messageRepo.CountUnread(ctx, chat.ID, userID)
	if err != nil {
		return nil, err
	}
	latest, err := uc.messageRepo.LatestByChat(ctx, []string{chat.ID})
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{Chat: chat, UnreadCount: unread, LastMessage: latest[chat.ID]}

	if other, err := uc.userRepo.GetByID(ctx, chat.OtherParticipant(userID)); err == nil {
		resp.OtherUser = other.Summary()
	}
	if chat.ListingID != nil {
		if listing, err := uc.listingRepo.GetByID(ctx, *chat.ListingID); err == nil {
			resp.Listing = listing.Summary()
		}
	}
	return resp, nil
}

func (uc *ChatUseCase) publish(ctx context.Context, routingKey string, payload interface{}) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, routingKey, payload); err != nil {
		logger.Warn("Failed to publish %s: %v", routingKey, err)
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
