package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
	"barterhub/internal/infrastructure/presence"
	"barterhub/internal/infrastructure/tracing"
	"barterhub/internal/infrastructure/typing"
	ws "barterhub/internal/infrastructure/websocket"
	"barterhub/internal/usecase"
	"barterhub/pkg/errors"
	"barterhub/pkg/logger"
	"barterhub/pkg/response"
)

var tracer = tracing.Tracer("barterhub/gateway")

// Hub is the connection abstraction the gateway drives.
type Hub interface {
	Emit(connID, event string, data interface{})
	Join(connID, room string)
	Leave(connID, room string)
	ToRoom(room, event string, data interface{})
	ToRoomExcept(room, exceptConnID, event string, data interface{})
	Broadcast(event string, data interface{})
	Disconnect(connID string)
}

// ChatService is the subset of the chat use case the gateway calls.
type ChatService interface {
	CheckAccess(ctx context.Context, chatID, userID string) (*entity.Chat, error)
	SendMessage(ctx context.Context, senderID string, input usecase.SendMessageInput) (*usecase.SendMessageResult, error)
	MarkMessagesAsRead(ctx context.Context, chatID, userID string, messageIDs []string) (*usecase.MarkReadResult, error)
}

type session struct {
	connID string
	user   *entity.User
	chats  map[string]struct{}
}

// Gateway authenticates socket connections and routes chat events between
// them. It implements websocket.Dispatcher and typing.Notifier.
type Gateway struct {
	hub      Hub
	chats    ChatService
	verifier usecase.TokenVerifier
	users    repository.UserRepository
	presence presence.Registry
	typing   *typing.Tracker
	validate *validator.Validate
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewGateway(
	hub Hub,
	chats ChatService,
	verifier usecase.TokenVerifier,
	users repository.UserRepository,
	registry presence.Registry,
	typingTimeout time.Duration,
) *Gateway {
	g := &Gateway{
		hub:      hub,
		chats:    chats,
		verifier: verifier,
		users:    users,
		presence: registry,
		validate: validator.New(),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	g.typing = typing.NewTracker(typingTimeout, g)
	return g
}

// Close stops pending typing timers.
func (g *Gateway) Close() {
	g.typing.Close()
}

func UserRoom(userID string) string { return "user:" + userID }

func ChatRoom(chatID string) string { return "chat:" + chatID }

// ExtractToken returns the bearer token from the handshake: auth payload
// first, then the Authorization header, then the token query parameter.
func ExtractToken(hs ws.Handshake) string {
	if t := strings.TrimSpace(hs.AuthToken); t != "" {
		return t
	}
	if h := hs.Header.Get("Authorization"); h != "" {
		if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t
			}
		}
	}
	if values := hs.Query["token"]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func (g *Gateway) HandleConnect(ctx context.Context, connID string, hs ws.Handshake) {
	ctx, span := tracer.Start(ctx, "gateway.connect", trace.WithAttributes(
		attribute.String("ws.conn_id", connID),
		attribute.String("net.peer.ip", hs.RemoteIP),
	))
	defer span.End()

	token := ExtractToken(hs)
	if token == "" {
		g.reject(connID, errors.Unauthorized("Authentication token required", nil))
		return
	}

	userID, err := g.verifier.VerifyToken(ctx, token)
	if err != nil {
		g.reject(connID, errors.Unauthorized("Invalid or expired token", err))
		return
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			err = errors.Unauthorized("User not found", err)
		}
		g.reject(connID, err)
		return
	}
	if !user.CanChat() {
		g.reject(connID, errors.Forbidden("Account is inactive or blocked", nil))
		return
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	g.mu.Lock()
	g.sessions[connID] = &session{connID: connID, user: user, chats: make(map[string]struct{})}
	g.mu.Unlock()

	entry, err := g.presence.Connect(ctx, user.ID, connID)
	if err != nil {
		logger.Error("Gateway: presence connect failed for %s: %v", user.ID, err)
		entry = presence.Entry{UserID: user.ID, SocketID: connID, IsOnline: true, LastSeen: g.now().UTC()}
	}
	g.hub.Join(connID, UserRoom(user.ID))

	g.hub.Emit(connID, EventConnected, map[string]interface{}{
		"user_id":   user.ID,
		"socket_id": connID,
		"user":      user.Summary(),
	})
	g.hub.Broadcast(EventPresenceChanged, presencePayload{
		UserID:   user.ID,
		IsOnline: true,
		LastSeen: entry.LastSeen.UTC().Format(time.RFC3339),
	})

	if err := g.users.TouchLastActive(ctx, user.ID, g.now().UTC()); err != nil {
		logger.Warn("Gateway: failed to update last active for %s: %v", user.ID, err)
	}
	logger.Info("Gateway: user %s connected on %s", user.ID, connID)
}

func (g *Gateway) HandleEvent(ctx context.Context, connID, event string, data json.RawMessage) {
	sess := g.session(connID)
	if sess == nil {
		g.emitError(connID, errors.Unauthorized("Not authenticated", nil))
		return
	}

	var err error
	switch event {
	case EventJoinChat:
		err = g.joinChat(ctx, sess, data)
	case EventLeaveChat:
		err = g.leaveChat(sess, data)
	case EventSendMessage:
		err = g.sendMessage(ctx, sess, data)
	case EventTypingStart:
		err = g.typingStart(ctx, sess, data)
	case EventTypingStop:
		err = g.typingStop(sess, data)
	case EventMarkRead:
		err = g.markRead(ctx, sess, data)
	case EventGetOnlineUsers:
		err = g.onlineUsers(ctx, sess)
	case EventPing:
		g.hub.Emit(connID, EventPong, map[string]string{"timestamp": g.timestamp()})
	default:
		err = errors.BadRequest("Unknown event: "+event, nil)
	}

	if err != nil {
		g.emitError(connID, err)
	}
}

func (g *Gateway) HandleDisconnect(ctx context.Context, connID string) {
	g.mu.Lock()
	sess, ok := g.sessions[connID]
	delete(g.sessions, connID)
	g.mu.Unlock()
	if !ok {
		return
	}

	userID := sess.user.ID
	g.typing.StopUser(userID)

	entry, offline, err := g.presence.Disconnect(ctx, connID)
	if err != nil {
		logger.Error("Gateway: presence disconnect failed for %s: %v", userID, err)
		return
	}
	if !offline {
		return
	}

	g.hub.Broadcast(EventPresenceChanged, presencePayload{
		UserID:   userID,
		IsOnline: false,
		LastSeen: entry.LastSeen.UTC().Format(time.RFC3339),
	})
	if err := g.users.TouchLastActive(ctx, userID, entry.LastSeen); err != nil {
		logger.Warn("Gateway: failed to update last active for %s: %v", userID, err)
	}
	logger.Info("Gateway: user %s disconnected from %s", userID, connID)
}

func (g *Gateway) joinChat(ctx context.Context, sess *session, data json.RawMessage) error {
	var in chatRef
	if err := g.decode(data, &in); err != nil {
		return err
	}

	chat, err := g.chats.CheckAccess(ctx, in.ChatID, sess.user.ID)
	if err != nil {
		return err
	}

	room := ChatRoom(chat.ID)
	g.hub.Join(sess.connID, room)
	g.mu.Lock()
	sess.chats[chat.ID] = struct{}{}
	g.mu.Unlock()

	read, err := g.chats.MarkMessagesAsRead(ctx, chat.ID, sess.user.ID, nil)
	if err != nil {
		logger.Warn("Gateway: mark read on join failed for chat %s: %v", chat.ID, err)
	} else {
		g.MessagesRead(read)
	}

	g.hub.ToRoomExcept(room, sess.connID, EventUserJoined, map[string]interface{}{
		"chat_id": chat.ID,
		"user_id": sess.user.ID,
		"user":    sess.user.Summary(),
	})
	g.hub.Emit(sess.connID, EventChatJoined, map[string]interface{}{
		"chat_id":      chat.ID,
		"chat":         chat,
		"typing_users": g.typing.Typing(chat.ID),
	})
	return nil
}

func (g *Gateway) leaveChat(sess *session, data json.RawMessage) error {
	var in chatRef
	if err := g.decode(data, &in); err != nil {
		return err
	}

	// Typing may have started without a join; it only ever emits for a
	// chat the caller already passed the access check on.
	g.typing.Stop(in.ChatID, sess.user.ID)

	g.mu.Lock()
	_, joined := sess.chats[in.ChatID]
	delete(sess.chats, in.ChatID)
	g.mu.Unlock()
	if !joined {
		return nil
	}

	room := ChatRoom(in.ChatID)
	g.hub.Leave(sess.connID, room)

	g.hub.ToRoom(room, EventUserLeft, map[string]interface{}{
		"chat_id": in.ChatID,
		"user_id": sess.user.ID,
	})
	g.hub.Emit(sess.connID, EventChatLeft, map[string]string{"chat_id": in.ChatID})
	return nil
}

func (g *Gateway) sendMessage(ctx context.Context, sess *session, data json.RawMessage) error {
	var in sendMessagePayload
	if err := g.decode(data, &in); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "gateway.send_message", trace.WithAttributes(
		attribute.String("chat.id", in.ChatID),
		attribute.String("user.id", sess.user.ID),
	))
	defer span.End()

	result, err := g.chats.SendMessage(ctx, sess.user.ID, usecase.SendMessageInput{
		ChatID:   in.ChatID,
		Type:     entity.MessageType(in.Type),
		Content:  in.Content,
		MediaURL: in.MediaURL,
		Metadata: in.Metadata,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}

	g.typing.Stop(in.ChatID, sess.user.ID)
	g.messageSent(result, sess.connID, in.ClientID)
	return nil
}

// MessageSent fans a persisted message out to the chat room and both
// participants. Used for messages sent over REST.
func (g *Gateway) MessageSent(result *usecase.SendMessageResult) {
	g.typing.Stop(result.Chat.ID, result.Message.SenderID)
	g.messageSent(result, "", "")
}

func (g *Gateway) messageSent(result *usecase.SendMessageResult, connID, clientID string) {
	chat := result.Chat
	g.hub.ToRoom(ChatRoom(chat.ID), EventMessageReceived, result.Message)

	if connID != "" {
		ack := map[string]interface{}{
			"chat_id": chat.ID,
			"message": result.Message,
		}
		if clientID != "" {
			ack["client_id"] = clientID
		}
		g.hub.Emit(connID, EventMessageSent, ack)
	}

	update := map[string]interface{}{
		"chat_id":         chat.ID,
		"last_message":    result.Message,
		"last_message_at": chat.LastMessageAt,
	}
	for _, userID := range chat.Participants() {
		g.hub.ToRoom(UserRoom(userID), EventChatUpdated, update)
	}
}

func (g *Gateway) typingStart(ctx context.Context, sess *session, data json.RawMessage) error {
	var in chatRef
	if err := g.decode(data, &in); err != nil {
		return err
	}
	if !g.inChat(sess, in.ChatID) {
		if _, err := g.chats.CheckAccess(ctx, in.ChatID, sess.user.ID); err != nil {
			return err
		}
	}
	g.typing.Start(in.ChatID, sess.user.ID)
	return nil
}

func (g *Gateway) typingStop(sess *session, data json.RawMessage) error {
	var in chatRef
	if err := g.decode(data, &in); err != nil {
		return err
	}
	g.typing.Stop(in.ChatID, sess.user.ID)
	return nil
}

func (g *Gateway) markRead(ctx context.Context, sess *session, data json.RawMessage) error {
	var in markReadPayload
	if err := g.decode(data, &in); err != nil {
		return err
	}

	var ids []string
	if in.MessageID != "" {
		ids = []string{in.MessageID}
	}
	result, err := g.chats.MarkMessagesAsRead(ctx, in.ChatID, sess.user.ID, ids)
	if err != nil {
		return err
	}

	g.MessagesRead(result)
	g.hub.Emit(sess.connID, EventMessagesMarkedRead, map[string]interface{}{
		"chat_id":     result.ChatID,
		"message_ids": result.MessageIDs,
		"count":       len(result.MessageIDs),
		"read_at":     result.ReadAt,
	})
	return nil
}

// MessagesRead tells the chat room which messages were read. Nothing is
// sent when no message changed.
func (g *Gateway) MessagesRead(result *usecase.MarkReadResult) {
	if result == nil || len(result.MessageIDs) == 0 {
		return
	}
	g.hub.ToRoom(ChatRoom(result.ChatID), EventMessageRead, result)
}

func (g *Gateway) onlineUsers(ctx context.Context, sess *session) error {
	ids, err := g.presence.OnlineUserIDs(ctx)
	if err != nil {
		return err
	}
	g.hub.Emit(sess.connID, EventOnlineUsers, map[string]interface{}{
		"user_ids": ids,
		"count":    len(ids),
	})
	return nil
}

// ChatCreated notifies the recipient of a newly opened chat.
func (g *Gateway) ChatCreated(chat *usecase.ChatResponse, recipientID string) {
	g.hub.ToRoom(UserRoom(recipientID), EventNewChat, chat)
}

func (g *Gateway) TradeUpdate(userIDs []string, data map[string]interface{}) {
	for _, id := range userIDs {
		g.hub.ToRoom(UserRoom(id), EventTradeUpdate, data)
	}
}

func (g *Gateway) OfferUpdate(userIDs []string, data map[string]interface{}) {
	for _, id := range userIDs {
		g.hub.ToRoom(UserRoom(id), EventOfferUpdate, data)
	}
}

func (g *Gateway) HolidayGreeting(holiday, message string) {
	g.hub.Broadcast(EventHolidayGreeting, map[string]string{
		"holiday":   holiday,
		"message":   message,
		"timestamp": g.timestamp(),
	})
}

func (g *Gateway) NetworkStatus(status, message string) {
	g.hub.Broadcast(EventNetworkStatus, map[string]string{
		"status":    status,
		"message":   message,
		"timestamp": g.timestamp(),
	})
}

// UserTyping implements typing.Notifier.
func (g *Gateway) UserTyping(chatID, userID string) {
	g.hub.ToRoom(ChatRoom(chatID), EventUserTyping, typingPayload{ChatID: chatID, UserID: userID})
}

func (g *Gateway) UserStoppedTyping(chatID, userID string) {
	g.hub.ToRoom(ChatRoom(chatID), EventUserStoppedTyping, typingPayload{ChatID: chatID, UserID: userID})
}

// SessionCount is the number of authenticated connections.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

func (g *Gateway) session(connID string) *session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessions[connID]
}

func (g *Gateway) inChat(sess *session, chatID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := sess.chats[chatID]
	return ok
}

func (g *Gateway) decode(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.BadRequest("Invalid event payload", err)
	}
	if err := g.validate.Struct(out); err != nil {
		return err
	}
	return nil
}

func (g *Gateway) reject(connID string, err error) {
	logger.Warn("Gateway: rejecting connection %s: %v", connID, err)
	g.emitError(connID, err)
	g.hub.Disconnect(connID)
}

func (g *Gateway) emitError(connID string, err error) {
	g.hub.Emit(connID, EventError, g.errorPayload(err))
}

func (g *Gateway) errorPayload(err error) errorPayload {
	if msg, ok := response.ValidationMessage(err); ok {
		return errorPayload{Message: msg, Code: errors.CodeValidation, Timestamp: g.timestamp()}
	}
	appErr := errors.Classify(err)
	if appErr.Code == errors.CodeInternal {
		logger.Error("Gateway: internal error: %v", err)
	}
	return errorPayload{Message: appErr.Message, Code: appErr.Code, Timestamp: g.timestamp()}
}

func (g *Gateway) timestamp() string {
	return g.now().UTC().Format(time.RFC3339)
}
