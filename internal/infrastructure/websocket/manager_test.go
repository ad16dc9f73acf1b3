package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu           sync.Mutex
	manager      *Manager
	connected    []string
	disconnected []string
	events       []string
}

func (d *recordingDispatcher) HandleConnect(_ context.Context, connID string, hs Handshake) {
	d.mu.Lock()
	d.connected = append(d.connected, connID)
	d.mu.Unlock()
	d.manager.Join(connID, "lobby")
	d.manager.Emit(connID, "connected", map[string]string{"token": hs.AuthToken})
}

func (d *recordingDispatcher) HandleEvent(_ context.Context, connID, event string, data json.RawMessage) {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	if event == "ping" {
		d.manager.Emit(connID, "pong", nil)
	}
	if event == "shout" {
		d.manager.ToRoomExcept("lobby", connID, "shouted", json.RawMessage(data))
	}
}

func (d *recordingDispatcher) HandleDisconnect(_ context.Context, connID string) {
	d.mu.Lock()
	d.disconnected = append(d.disconnected, connID)
	d.mu.Unlock()
}

func (d *recordingDispatcher) disconnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.disconnected)
}

func newTestServer(t *testing.T) (*Manager, *recordingDispatcher, string) {
	t.Helper()
	m := NewManager(nil)
	d := &recordingDispatcher{manager: m}
	m.SetDispatcher(d)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Serve(context.Background(), conn, Handshake{AuthToken: r.URL.Query().Get("t")})
	}))
	t.Cleanup(srv.Close)
	return m, d, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestManager_ConnectAndPing(t *testing.T) {
	m, _, url := newTestServer(t)
	conn := dial(t, url+"?t=abc")

	msg := readFrame(t, conn)
	assert.Equal(t, "connected", msg.Type)
	assert.JSONEq(t, `{"token":"abc"}`, string(msg.Data))
	assert.NotEmpty(t, msg.Timestamp)
	assert.Equal(t, 1, m.ConnectionCount())

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Type)
}

func TestManager_InvalidFrame(t *testing.T) {
	_, _, url := newTestServer(t)
	conn := dial(t, url)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readFrame(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, string(msg.Data), "BAD_REQUEST")
}

func TestManager_RoomExcludesSender(t *testing.T) {
	_, _, url := newTestServer(t)
	a := dial(t, url)
	readFrame(t, a)
	b := dial(t, url)
	readFrame(t, b)

	require.NoError(t, a.WriteJSON(WSMessage{Type: "shout", Data: json.RawMessage(`{"text":"hi"}`)}))

	msg := readFrame(t, b)
	assert.Equal(t, "shouted", msg.Type)
	assert.JSONEq(t, `{"text":"hi"}`, string(msg.Data))

	require.NoError(t, a.WriteJSON(WSMessage{Type: "ping"}))
	assert.Equal(t, "pong", readFrame(t, a).Type)
}

func TestManager_DisconnectFlushesAndUnregisters(t *testing.T) {
	m, d, url := newTestServer(t)
	conn := dial(t, url)
	readFrame(t, conn)

	var connID string
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.connected) == 1 {
			connID = d.connected[0]
			return true
		}
		return false
	}, time.Second, 10*time.Millisecond)

	m.Emit(connID, "error", map[string]string{"code": "UNAUTHORIZED"})
	m.Disconnect(connID)

	assert.Equal(t, "error", readFrame(t, conn).Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.Eventually(t, func() bool {
		return d.disconnectCount() == 1 && m.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, m.InRoom(connID, "lobby"))
}

func TestManager_DisconnectDetachesImmediately(t *testing.T) {
	m, d, url := newTestServer(t)
	conn := dial(t, url)
	readFrame(t, conn)

	var connID string
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.connected) == 1 {
			connID = d.connected[0]
			return true
		}
		return false
	}, time.Second, 10*time.Millisecond)

	m.Disconnect(connID)
	assert.Zero(t, m.ConnectionCount())
	assert.False(t, m.InRoom(connID, "lobby"))

	m.Disconnect(connID)
	assert.Eventually(t, func() bool { return d.disconnectCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_ConcurrentSendAndDisconnect(t *testing.T) {
	m := NewManager(nil)
	client := &Client{ID: "c1", Send: make(chan []byte, 2), rooms: make(map[string]struct{})}
	m.mutex.Lock()
	m.clients[client.ID] = client
	m.mutex.Unlock()
	m.Join("c1", "chat:1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.ToRoom("chat:1", "message_received", map[string]int{"n": j})
				m.Emit("c1", "pong", nil)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Disconnect("c1")
	}()
	wg.Wait()

	assert.Zero(t, m.ConnectionCount())
	queued, full := client.enqueue([]byte("late"))
	assert.False(t, queued)
	assert.False(t, full)
}

func TestManager_WithoutRelayEmitToUnknownConnIsDropped(t *testing.T) {
	m := NewManager(nil)
	assert.NotPanics(t, func() {
		m.Emit("missing", "pong", nil)
		m.ToRoom("chat:1", "message_received", map[string]string{"id": "1"})
		m.Broadcast("network_status", nil)
	})
}

type memoryRelay struct {
	mu        sync.Mutex
	published []Delivery
}

func (r *memoryRelay) Publish(_ context.Context, d Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, d)
	return nil
}

func (r *memoryRelay) Subscribe(ctx context.Context, _ func(Delivery)) error {
	<-ctx.Done()
	return nil
}

func TestManager_RelayReceivesRemoteDeliveries(t *testing.T) {
	relay := &memoryRelay{}
	m := NewManager(relay)

	m.Emit("remote-conn", "pong", nil)
	m.ToRoom("chat:1", "message_received", nil)

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Len(t, relay.published, 2)
	assert.Equal(t, DeliverConn, relay.published[0].Kind)
	assert.Equal(t, "remote-conn", relay.published[0].ConnID)
	assert.Equal(t, DeliverRoom, relay.published[1].Kind)
	assert.Equal(t, m.instanceID, relay.published[1].Origin)
}
