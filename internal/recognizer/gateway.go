package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// GatewayClient talks to the speech gateway over its streaming websocket
// protocol: one JSON configure frame, then binary audio frames out and JSON
// result frames in.
type GatewayClient struct {
	url    string
	apiKey string
	logger *log.Logger
}

func NewGatewayClient(url, apiKey string, logger *log.Logger) (*GatewayClient, error) {
	if url == "" {
		return nil, fmt.Errorf("gateway URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gateway API key is required")
	}
	return &GatewayClient{url: url, apiKey: apiKey, logger: logger}, nil
}

// gatewayMessage is the JSON envelope for every non-binary frame.
type gatewayMessage struct {
	Type    string        `json:"type"`
	Config  *StreamConfig `json:"config,omitempty"`
	Result  *Result       `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
	Session string        `json:"session_id,omitempty"`
}

func (c *GatewayClient) Stream(ctx context.Context, cfg StreamConfig) (Stream, error) {
	header := http.Header{}
	header.Add("Authorization", "Bearer "+c.apiKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to speech gateway: %w", err)
	}

	configure := gatewayMessage{Type: "configure", Config: &cfg}
	if err := conn.WriteJSON(configure); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send stream config: %w", err)
	}

	return &gatewayStream{conn: conn, logger: c.logger}, nil
}

type gatewayStream struct {
	conn    *websocket.Conn
	logger  *log.Logger
	writeMu sync.Mutex
	closed  bool
}

func (s *gatewayStream) Send(chunk []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return fmt.Errorf("stream already closed")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// Recv blocks until the gateway emits the next result. Control frames
// (begin, keepalive) are consumed here so callers only ever see results.
func (s *gatewayStream) Recv() (Result, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Result{}, io.EOF
			}
			return Result{}, err
		}

		var msg gatewayMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("unparseable gateway frame", "error", err)
			continue
		}

		switch msg.Type {
		case "begin":
			s.logger.Debug("gateway stream open", "session", msg.Session)
		case "result":
			if msg.Result != nil {
				return *msg.Result, nil
			}
		case "error":
			return Result{}, fmt.Errorf("gateway error: %s", msg.Error)
		case "end":
			return Result{}, io.EOF
		}
	}
}

// Close signals end-of-audio and tears down the connection. The gateway is
// given a moment to flush pending results to a concurrent Recv loop.
func (s *gatewayStream) Close() error {
	s.writeMu.Lock()
	if s.closed {
		s.writeMu.Unlock()
		return nil
	}
	s.closed = true
	err := s.conn.WriteJSON(gatewayMessage{Type: "terminate"})
	s.writeMu.Unlock()

	if err == nil {
		time.Sleep(100 * time.Millisecond)
	}
	return s.conn.Close()
}
