package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/pkg/jwt"
	"github.com/qs3c/premium_bot/internal/pkg/ws"
	"github.com/qs3c/premium_bot/internal/service"
)

func newWebSocketServer(t *testing.T, hub *ws.Hub, origins []string) *httptest.Server {
	t.Helper()

	validator := service.NewAuthService(testConfig(), nil)
	router := gin.New()
	router.GET("/ws", NewWebSocketHandler(hub, validator, origins).Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
}

func TestWebSocketHandler_RejectsBadTokens(t *testing.T) {
	server := newWebSocketServer(t, ws.NewHub(), nil)

	nonAdmin, err := jwt.GenerateToken(alice, "alice", testJWTSecret, 1)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", nonAdmin} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestWebSocketHandler_RegistersAdmin(t *testing.T) {
	hub := ws.NewHub()
	server := newWebSocketServer(t, hub, nil)

	token, err := jwt.GenerateToken(testAdmin, "root", testJWTSecret, 1)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.IsOnline(testAdmin) }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(&ws.Message{Type: "subscription.claimed"}))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "subscription.claimed")

	conn.Close()
	assert.Eventually(t, func() bool { return !hub.IsOnline(testAdmin) }, time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_Origin(t *testing.T) {
	server := newWebSocketServer(t, ws.NewHub(), []string{"http://localhost:5173"})

	token, err := jwt.GenerateToken(testAdmin, "root", testJWTSecret, 1)
	require.NoError(t, err)

	header := http.Header{"Origin": []string{"http://evil.com"}}
	_, _, err = websocket.DefaultDialer.Dial(wsURL(server, token), header)
	assert.Error(t, err)

	header = http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, token), header)
	require.NoError(t, err)
	conn.Close()
}
