package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"propdesk/internal/events"
	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"
	"propdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxMessageSize = 4 * 1024

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ClientMessage is what a browser sends over the socket.
type ClientMessage struct {
	Action    string `json:"action"`
	ProjectID string `json:"project_id"`
}

// ServerMessage acknowledges a ClientMessage. Project events are forwarded
// as published, in events.Envelope form.
type ServerMessage struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Authorizer interface {
	CanSubscribe(ctx context.Context, userID string, channel string) (bool, error)
}

type Handler struct {
	auth       *services.AuthService
	authorizer Authorizer
	hub        *Hub
	upgrader   websocket.Upgrader
	log        *logger.Logger
}

func NewHandler(auth *services.AuthService, authorizer Authorizer, hub *Hub, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	return &Handler{
		auth:       auth,
		authorizer: authorizer,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: l,
	}
}

func (h *Handler) Connect(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, claims.UserID())
	ctx, cancel := context.WithCancel(services.WithUserContext(context.Background(), client.UserID))
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	h.readLoop(ctx, client)
	h.hub.Unregister(client)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Ctx(ctx).Debugf("websocket read: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(client, ServerMessage{Type: "error", Error: "invalid message"})
			continue
		}
		h.handleMessage(ctx, client, msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, client *Client, msg ClientMessage) {
	channel := events.ProjectChannel(strings.TrimSpace(msg.ProjectID))
	switch msg.Action {
	case ActionSubscribe:
		allowed, err := h.authorizer.CanSubscribe(ctx, client.UserID, channel)
		if err != nil {
			h.log.Ctx(ctx).Errorf("authorize %s: %v", channel, err)
			h.reply(client, ServerMessage{Type: "error", ProjectID: msg.ProjectID, Error: "subscription failed"})
			return
		}
		if !allowed {
			h.reply(client, ServerMessage{Type: "error", ProjectID: msg.ProjectID, Error: "forbidden"})
			return
		}
		h.hub.Subscribe(client, channel)
		h.reply(client, ServerMessage{Type: "subscribed", ProjectID: msg.ProjectID})
	case ActionUnsubscribe:
		h.hub.Unsubscribe(client, channel)
		h.reply(client, ServerMessage{Type: "unsubscribed", ProjectID: msg.ProjectID})
	default:
		h.reply(client, ServerMessage{Type: "error", Error: "unknown action"})
	}
}

func (h *Handler) reply(client *Client, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	client.SendMessage(data)
}

func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
