package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"propdesk/config"
	"propdesk/internal/events"
	"propdesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocketServer(t *testing.T) (*httptest.Server, *Hub, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := services.NewAuthService(&config.Config{AuthJWTSecret: "test-secret"})
	hub := runHub(t)
	h := NewHandler(auth, NewChannelAuthorizer(ownership{owners: map[string]string{"p1": "u1"}}), hub, nil)

	r := gin.New()
	r.GET("/ws", h.Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, auth
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	srv, _, _ := newSocketServer(t)

	_, res, err := dial(t, srv, "")

	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHandler_SubscribeAndReceive(t *testing.T) {
	srv, hub, auth := newSocketServer(t)
	token, err := auth.IssueAccessToken("u1", time.Minute)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, token)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, ProjectID: "p1"}))
	var ack ServerMessage
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, ServerMessage{Type: "subscribed", ProjectID: "p1"}, ack)

	channel := events.ProjectChannel("p1")
	require.Eventually(t, func() bool { return hub.SubscriberCount(channel) == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast(channel, []byte(`{"type":"attachments.changed"}`))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"attachments.changed"}`, string(data))
}

func TestHandler_ForeignProjectForbidden(t *testing.T) {
	srv, hub, auth := newSocketServer(t)
	token, err := auth.IssueAccessToken("u2", time.Minute)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, token)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, ProjectID: "p1"}))
	var reply ServerMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "forbidden", reply.Error)
	assert.Zero(t, hub.SubscriberCount(events.ProjectChannel("p1")))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "invalid message", reply.Error)
}

func TestHandler_DisconnectUnregisters(t *testing.T) {
	srv, hub, auth := newSocketServer(t)
	token, err := auth.IssueAccessToken("u1", time.Minute)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, token)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	c.Request.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", extractToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	assert.Equal(t, "q", extractToken(c))
}
