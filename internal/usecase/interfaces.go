package usecase

import (
	"context"
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// EventPublisher emits domain events to other services. Publishing is
// best effort; the caller's write has already been persisted.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

const (
	EventChatCreated      = "chat.created"
	EventChatMessageSent  = "chat.message.sent"
	EventChatMessagesRead = "chat.messages.read"
	EventChatDeleted      = "chat.deleted"
)
