package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "barterhub/internal/infrastructure/websocket"
)

type capturingServer struct {
	handshakes chan ws.Handshake
}

func (s *capturingServer) Serve(_ context.Context, conn *gorillaws.Conn, hs ws.Handshake) {
	s.handshakes <- hs
	conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, ""))
	conn.Close()
}

func newSocketServer(t *testing.T, origins []string) (*capturingServer, string) {
	t.Helper()
	srv := &capturingServer{handshakes: make(chan ws.Handshake, 1)}
	e := echo.New()
	e.GET("/ws/chat", NewWebSocketHandler(srv, origins).HandleWebSocket)
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
}

func TestWebSocketHandler_PassesHandshake(t *testing.T) {
	srv, url := newSocketServer(t, []string{"*"})

	dialer := gorillaws.Dialer{Subprotocols: []string{"access_token", "tok-123"}}
	header := http.Header{"Authorization": {"Bearer from-header"}}
	conn, resp, err := dialer.Dial(url+"?token=from-query", header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "access_token", resp.Header.Get("Sec-WebSocket-Protocol"))

	select {
	case hs := <-srv.handshakes:
		assert.Equal(t, "tok-123", hs.AuthToken)
		assert.Equal(t, "Bearer from-header", hs.Header.Get("Authorization"))
		assert.Equal(t, []string{"from-query"}, hs.Query["token"])
	case <-time.After(2 * time.Second):
		t.Fatal("handshake not served")
	}
}

func TestWebSocketHandler_RejectsUnknownOrigin(t *testing.T) {
	srv, url := newSocketServer(t, []string{"https://barterhub.ng"})

	_, resp, err := gorillaws.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, srv.handshakes)

	conn, _, err := gorillaws.DefaultDialer.Dial(url, http.Header{"Origin": {"https://BarterHub.ng"}})
	require.NoError(t, err)
	conn.Close()
}

func TestSubprotocolToken(t *testing.T) {
	for _, tc := range []struct {
		header string
		want   string
	}{
		{"access_token, abc", "abc"},
		{"chat, access_token, abc", "abc"},
		{"access_token", ""},
		{"", ""},
	} {
		req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
		if tc.header != "" {
			req.Header.Set("Sec-WebSocket-Protocol", tc.header)
		}
		assert.Equal(t, tc.want, subprotocolToken(req), tc.header)
	}
}
