package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRegistry struct {
	mu      sync.RWMutex
	users   map[string]Entry
	sockets map[string]string
	now     func() time.Time
}

// NewMemoryRegistry keeps presence in process memory. Other instances do
// not see it.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{
		users:   make(map[string]Entry),
		sockets: make(map[string]string),
		now:     time.Now,
	}
}

func (r *memoryRegistry) Connect(_ context.Context, userID, socketID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := Entry{UserID: userID, SocketID: socketID, IsOnline: true, LastSeen: r.now()}
	r.users[userID] = entry
	r.sockets[socketID] = userID
	return entry, nil
}

func (r *memoryRegistry) Disconnect(_ context.Context, socketID string) (Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, known := r.sockets[socketID]
	if !known {
		return Entry{}, false, nil
	}
	delete(r.sockets, socketID)

	entry, online := r.users[userID]
	if !online || entry.SocketID != socketID {
		return Entry{UserID: userID, SocketID: socketID}, false, nil
	}
	delete(r.users, userID)

	entry.IsOnline = false
	entry.LastSeen = r.now()
	return entry, true, nil
}

func (r *memoryRegistry) Get(_ context.Context, userID string) (Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID]
	return entry, ok, nil
}

func (r *memoryRegistry) OnlineUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
