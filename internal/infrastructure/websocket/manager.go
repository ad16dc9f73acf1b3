package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"barterhub/internal/infrastructure/metrics"
	"barterhub/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Handshake is what the gateway needs from the upgrade request.
type Handshake struct {
	Header http.Header
	Query  map[string][]string
	// AuthToken is the token offered through the Sec-WebSocket-Protocol
	// auth payload, if any.
	AuthToken string
	RemoteIP  string
}

// Dispatcher receives connection lifecycle and inbound events. Events for
// one connection are delivered sequentially.
type Dispatcher interface {
	HandleConnect(ctx context.Context, connID string, hs Handshake)
	HandleEvent(ctx context.Context, connID, event string, data json.RawMessage)
	HandleDisconnect(ctx context.Context, connID string)
}

// Client represents a WebSocket connection client
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	rooms    map[string]struct{}
	sendMu   sync.Mutex
	closed   bool
	doneOnce sync.Once
}

// enqueue hands payload to the write pump without blocking. full is set
// when the buffer has no room; a closed client reports neither.
func (c *Client) enqueue(payload []byte) (queued, full bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.Send <- payload:
		return true, false
	default:
		return false, true
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Manager owns the connections of this instance and their room membership.
type Manager struct {
	mutex      sync.RWMutex
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	dispatcher Dispatcher
	relay      Relay
	instanceID string
}

// NewManager creates a new WebSocket connection manager. relay may be nil,
// in which case room and broadcast deliveries reach only this instance.
func NewManager(relay Relay) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		relay:      relay,
		instanceID: uuid.NewString(),
	}
}

func (m *Manager) SetDispatcher(d Dispatcher) {
	m.dispatcher = d
}

// Start subscribes to the relay, if any, until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if m.relay == nil {
		return nil
	}
	return m.relay.Subscribe(ctx, func(d Delivery) {
		if d.Origin == m.instanceID {
			return
		}
		m.deliverLocal(d)
	})
}

// Serve registers an upgraded connection and runs its pumps. It returns when
// the connection is closed.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn, hs Handshake) {
	client := &Client{
		ID:    uuid.NewString(),
		Conn:  conn,
		Send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}

	m.mutex.Lock()
	m.clients[client.ID] = client
	m.mutex.Unlock()
	metrics.IncWSActive()
	logger.Debug("Client registered: %s", client.ID)

	go client.WritePump()

	if m.dispatcher != nil {
		m.dispatcher.HandleConnect(ctx, client.ID, hs)
	}
	client.ReadPump(ctx, m)
}

func (m *Manager) unregister(ctx context.Context, client *Client) {
	m.mutex.Lock()
	m.detachLocked(client)
	m.mutex.Unlock()
	client.close()

	client.doneOnce.Do(func() {
		metrics.DecWSActive()
		logger.Debug("Client unregistered: %s", client.ID)

		if m.dispatcher != nil {
			m.dispatcher.HandleDisconnect(ctx, client.ID)
		}
	})
}

// detachLocked removes client from the connection and room tables. Caller
// holds the write lock.
func (m *Manager) detachLocked(client *Client) {
	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	delete(m.clients, client.ID)
	for room := range client.rooms {
		m.leaveLocked(client, room)
	}
}

// Emit sends to one connection. Connections owned by another instance are
// reached through the relay.
func (m *Manager) Emit(connID, event string, data interface{}) {
	payload, ok := m.encode(event, data)
	if !ok {
		return
	}
	if m.sendTo(connID, payload) {
		return
	}
	m.publish(Delivery{Kind: DeliverConn, ConnID: connID, Payload: payload})
}

func (m *Manager) ToRoom(room, event string, data interface{}) {
	m.ToRoomExcept(room, "", event, data)
}

// ToRoomExcept sends to every member of room other than exceptConnID.
func (m *Manager) ToRoomExcept(room, exceptConnID, event string, data interface{}) {
	payload, ok := m.encode(event, data)
	if !ok {
		return
	}
	d := Delivery{Kind: DeliverRoom, Room: room, ExceptConn: exceptConnID, Payload: payload}
	m.deliverLocal(d)
	m.publish(d)
}

func (m *Manager) Broadcast(event string, data interface{}) {
	payload, ok := m.encode(event, data)
	if !ok {
		return
	}
	d := Delivery{Kind: DeliverAll, Payload: payload}
	m.deliverLocal(d)
	m.publish(d)
}

func (m *Manager) Join(connID, room string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[connID]
	if !ok {
		return
	}
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		m.rooms[room] = members
	}
	members[connID] = client
	client.rooms[room] = struct{}{}
}

func (m *Manager) Leave(connID, room string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if client, ok := m.clients[connID]; ok {
		m.leaveLocked(client, room)
	}
}

func (m *Manager) leaveLocked(client *Client, room string) {
	delete(client.rooms, room)
	if members, ok := m.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
}

// InRoom reports whether connID is a member of room on this instance.
func (m *Manager) InRoom(connID, room string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.rooms[room][connID]
	return ok
}

// Disconnect stops routing to connID and closes it once queued frames are
// written. The dispatcher still sees HandleDisconnect when the read pump exits.
func (m *Manager) Disconnect(connID string) {
	m.mutex.Lock()
	client, ok := m.clients[connID]
	if ok {
		m.detachLocked(client)
	}
	m.mutex.Unlock()
	if ok {
		client.close()
	}
}

func (m *Manager) ConnectionCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

func (m *Manager) encode(event string, data interface{}) ([]byte, bool) {
	payload, err := Encode(event, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s: %v", event, err)
		return nil, false
	}
	return payload, true
}

func (m *Manager) sendTo(connID string, payload []byte) bool {
	m.mutex.RLock()
	client, ok := m.clients[connID]
	if ok {
		m.trySend(client, payload)
	}
	m.mutex.RUnlock()
	return ok
}

func (m *Manager) deliverLocal(d Delivery) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	switch d.Kind {
	case DeliverConn:
		if client, ok := m.clients[d.ConnID]; ok {
			m.trySend(client, d.Payload)
		}
	case DeliverRoom:
		for id, client := range m.rooms[d.Room] {
			if id != d.ExceptConn {
				m.trySend(client, d.Payload)
			}
		}
	case DeliverAll:
		for _, client := range m.clients {
			m.trySend(client, d.Payload)
		}
	}
}

// trySend never blocks; a client whose buffer is full is closed. Caller
// holds at least the read lock.
func (m *Manager) trySend(client *Client, payload []byte) {
	if _, full := client.enqueue(payload); full {
		logger.Warn("WebSocket: send buffer full for %s, closing", client.ID)
		client.close()
	}
}

func (m *Manager) publish(d Delivery) {
	if m.relay == nil {
		return
	}
	d.Origin = m.instanceID
	if err := m.relay.Publish(context.Background(), d); err != nil {
		logger.Warn("WebSocket: relay publish failed: %v", err)
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		m.unregister(ctx, c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error on %s: %v", c.ID, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			m.Emit(c.ID, "error", map[string]interface{}{
				"message":   "Invalid message format",
				"code":      "BAD_REQUEST",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			continue
		}

		metrics.IncWSEvent(msg.Type)
		if m.dispatcher != nil {
			m.dispatcher.HandleEvent(ctx, c.ID, msg.Type, msg.Data)
		}
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("WebSocket: write error on %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
