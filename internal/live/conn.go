package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/obslog"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient adapts one gorilla connection to the manager's Client interface.
// Send never blocks the manager loop: a slow consumer drops events.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan ServerEvent
	done   chan struct{}
}

func (c *wsClient) UserID() string { return c.userID }

func (c *wsClient) Send(ev ServerEvent) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- ev:
	default:
		obslog.L().Warn("ws_send_dropped",
			zap.String("user_id", c.userID),
			zap.String("event", ev.Type),
		)
	}
}

func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and pumps events between the socket and the
// manager until the connection drops.
func ServeWS(m *Manager, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_upgrade_error", zap.Error(err))
		return
	}

	client := &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan ServerEvent, sendQueueSize),
		done:   make(chan struct{}),
	}
	go client.writePump()
	obslog.L().Info("ws_connected", zap.String("user_id", userID))

	for {
		var evt ClientEvent
		if err := conn.ReadJSON(&evt); err != nil {
			break
		}
		m.Dispatch(client, evt)
	}

	m.Disconnect(client)
	close(client.done)
	_ = conn.Close()
	obslog.L().Info("ws_disconnected", zap.String("user_id", userID))
}
