package gateway

// Inbound events.
const (
	EventJoinChat       = "join_chat"
	EventLeaveChat      = "leave_chat"
	EventSendMessage    = "send_message"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
	EventMarkRead       = "mark_read"
	EventGetOnlineUsers = "get_online_users"
	EventPing           = "ping"
)

// Outbound events.
const (
	EventConnected          = "connected"
	EventChatJoined         = "chat_joined"
	EventChatLeft           = "chat_left"
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventMessageReceived    = "message_received"
	EventMessageSent        = "message_sent"
	EventChatUpdated        = "chat_updated"
	EventUserTyping         = "user_typing"
	EventUserStoppedTyping  = "user_stopped_typing"
	EventMessageRead        = "message_read"
	EventMessagesMarkedRead = "messages_marked_read"
	EventOnlineUsers        = "online_users"
	EventPresenceChanged    = "presence_changed"
	EventError              = "error"
	EventPong               = "pong"

	EventNewChat         = "new_chat"
	EventTradeUpdate     = "trade_update"
	EventOfferUpdate     = "offer_update"
	EventHolidayGreeting = "holiday_greeting"
	EventNetworkStatus   = "network_status"
)

type chatRef struct {
	ChatID string `json:"chat_id" validate:"required"`
}

type sendMessagePayload struct {
	ChatID   string                 `json:"chat_id" validate:"required"`
	Type     string                 `json:"type,omitempty" validate:"omitempty,oneof=TEXT IMAGE AUDIO VIDEO DOCUMENT LOCATION SYSTEM"`
	Content  string                 `json:"content" validate:"max=4000"`
	MediaURL string                 `json:"media_url,omitempty" validate:"omitempty,url"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// ClientID is echoed back in message_sent so clients can reconcile
	// optimistic messages.
	ClientID string `json:"client_id,omitempty" validate:"max=64"`
}

type markReadPayload struct {
	ChatID    string `json:"chat_id" validate:"required"`
	MessageID string `json:"message_id,omitempty"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

type presencePayload struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
	LastSeen string `json:"last_seen"`
}

type typingPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}
