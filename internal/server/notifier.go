package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/advisorly/transcriber/internal/pipeline"
)

// wsNotifier serializes notifications onto one websocket connection. The
// drain loop and the read loop both send; the mutex keeps frames whole. A
// write failure closes the connection so the read loop unblocks and the
// session tears down.
type wsNotifier struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSNotifier(conn *websocket.Conn) *wsNotifier {
	return &wsNotifier{conn: conn}
}

func (n *wsNotifier) Notify(notification pipeline.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		n.conn.Close()
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
