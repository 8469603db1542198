// internal/realtime/gateway.go
package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/gurkanbulca/workhub/internal/models"
	"github.com/gurkanbulca/workhub/pkg/auth"
)

// BacklogSource supplies the unread notifications to replay when a principal
// connects. Injected so the gateway never reaches back into the notification
// layer directly.
type BacklogSource interface {
	Backlog(ctx context.Context, principalID string) ([]models.Notification, error)
}

// Gateway upgrades HTTP requests to websocket connections, authenticates them,
// registers them with the hub and replays the principal's backlog.
type Gateway struct {
	hub     *Hub
	backlog BacklogSource
	tokens  *auth.TokenManager
	logger  *slog.Logger
}

func NewGateway(hub *Hub, backlog BacklogSource, tokens *auth.TokenManager, logger *slog.Logger) *Gateway {
	return &Gateway{
		hub:     hub,
		backlog: backlog,
		tokens:  tokens,
		logger:  logger,
	}
}

// Handler returns the websocket endpoint handler.
func (g *Gateway) Handler() http.Handler {
	return websocket.Handler(g.serve)
}

func (g *Gateway) serve(ws *websocket.Conn) {
	conn := newWSConn(ws)

	claims, err := g.authenticate(ws.Request())
	if err != nil {
		_ = conn.Send(Event{Type: "error", Payload: map[string]string{"message": "unauthorized"}})
		_ = conn.Close()
		return
	}

	principalID := claims.UserID
	g.hub.Register(principalID, conn)
	defer g.hub.Unregister(principalID, conn)

	g.replayBacklog(ws.Request().Context(), principalID, conn)

	// Hold the connection open until the peer goes away. Client frames carry
	// no meaning; delivery is one-way.
	for {
		var discard string
		if err := websocket.Message.Receive(ws, &discard); err != nil {
			if err != io.EOF {
				g.logger.Debug("websocket closed", "principal", principalID, "error", err)
			}
			return
		}
	}
}

func (g *Gateway) authenticate(r *http.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return g.tokens.Verify(token)
}

func (g *Gateway) replayBacklog(ctx context.Context, principalID string, conn *wsConn) {
	notifications, err := g.backlog.Backlog(ctx, principalID)
	if err != nil {
		g.logger.Warn("backlog fetch failed", "principal", principalID, "error", err)
		return
	}
	for i := range notifications {
		if err := conn.Send(Event{Type: "notification", Payload: &notifications[i]}); err != nil {
			g.logger.Debug("backlog replay aborted", "principal", principalID, "error", err)
			return
		}
	}
}

// wsConn serializes writes to a single websocket connection.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return websocket.JSON.Send(c.ws, event)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
