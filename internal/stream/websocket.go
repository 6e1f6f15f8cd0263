package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// WebSocketSink writes events as JSON text frames
type WebSocketSink struct {
	conn *websocket.Conn
}

func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

func (s *WebSocketSink) Send(ctx context.Context, event Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, event)
}

// ServeWebSocket upgrades the request and streams the status of taskID over it.
// The connection closes normally after a terminal event.
func (b *Bridge) ServeWebSocket(w http.ResponseWriter, r *http.Request, taskID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		b.logger.WithError(err).WithField("task_id", taskID).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	// CloseRead discards client frames and cancels ctx once the client goes away
	ctx := conn.CloseRead(r.Context())

	b.Stream(ctx, taskID, NewWebSocketSink(conn))
	conn.Close(websocket.StatusNormalClosure, "")
}
