package presence

import (
	"context"
	"time"
)

// Entry is the presence state of one connected user.
type Entry struct {
	UserID   string    `json:"user_id"`
	SocketID string    `json:"socket_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// Registry maps connected users to their current socket. A user has at most
// one current socket; connecting again replaces it.
type Registry interface {
	// Connect marks userID online on socketID.
	Connect(ctx context.Context, userID, socketID string) (Entry, error)
	// Disconnect removes socketID. ok is false when the socket was unknown
	// or had already been replaced by a newer connection of the same user;
	// in that case the user stays online.
	Disconnect(ctx context.Context, socketID string) (entry Entry, ok bool, err error)
	Get(ctx context.Context, userID string) (Entry, bool, error)
	OnlineUserIDs(ctx context.Context) ([]string, error)
}
