package handler

import (
	"context"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "barterhub/internal/infrastructure/websocket"
	"barterhub/pkg/logger"
)

// authSubprotocol marks the Sec-WebSocket-Protocol entry that carries the
// token: "access_token, <token>".
const authSubprotocol = "access_token"

// SocketServer runs one upgraded connection until it closes.
type SocketServer interface {
	Serve(ctx context.Context, conn *gorillaws.Conn, hs ws.Handshake)
}

type WebSocketHandler struct {
	server   SocketServer
	upgrader gorillaws.Upgrader
}

func NewWebSocketHandler(server SocketServer, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		server: server,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{authSubprotocol},
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// subprotocolToken returns the token following the access_token entry.
func subprotocolToken(r *http.Request) string {
	protocols := gorillaws.Subprotocols(r)
	for i, p := range protocols {
		if p == authSubprotocol && i+1 < len(protocols) {
			return protocols[i+1]
		}
	}
	return ""
}

// HandleWebSocket upgrades the request. Authentication happens in the
// gateway's connect handler so that rejections reach the client as an
// error event.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	req := c.Request()
	hs := ws.Handshake{
		Header:    req.Header.Clone(),
		Query:     req.URL.Query(),
		AuthToken: subprotocolToken(req),
		RemoteIP:  c.RealIP(),
	}

	conn, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed from %s: %v", hs.RemoteIP, err)
		return nil
	}

	h.server.Serve(context.WithoutCancel(req.Context()), conn, hs)
	return nil
}
