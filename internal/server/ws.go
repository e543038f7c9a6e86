package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/advisorly/transcriber/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 4096,
	// browser clients connect from the app origin; auth is the session triple
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientCommand is a structured text frame from the client. Only the
// combined channel accepts them.
type clientCommand struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// handleStream runs the shared session state machine for one channel
// variant: accept, feed frames while active, tear down on disconnect.
func (s *Server) handleStream(channel pipeline.ChannelConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := sessionFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("websocket upgrade failed", "source", channel.Source, "error", err)
			return
		}
		defer conn.Close()

		logger := s.logger.With("session", info.SessionID, "source", channel.Source)

		// the session outlives the request context on purpose: teardown is
		// driven by the read loop, not by handler cancellation
		ctx := context.Background()

		ctrl := pipeline.NewController(
			info,
			channel,
			s.recognizer,
			&transcriptSink{store: s.store},
			s.responder,
			newWSNotifier(conn),
			s.logger,
		)
		ctrl.Start(ctx)
		s.trackSession(ctrl)

		if s.registry != nil {
			fields := map[string]string{
				"user_id":   info.UserID,
				"client_id": info.ClientID,
				"source":    channel.Source,
			}
			if err := s.registry.Register(ctx, info.SessionID, fields); err != nil {
				logger.Warn("failed to register session", "error", err)
			}
		}

		defer func() {
			ctrl.Stop()
			s.untrackSession(ctrl)
			if s.registry != nil {
				if err := s.registry.Release(ctx, info.SessionID); err != nil {
					logger.Warn("failed to release session", "error", err)
				}
			}
		}()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("client disconnected")
				} else {
					logger.Error("websocket read error", "error", err)
				}
				return
			}

			switch msgType {
			case websocket.BinaryMessage:
				ctrl.FeedAudio(data)
			case websocket.TextMessage:
				if !channel.AcceptText {
					continue
				}
				var cmd clientCommand
				if err := json.Unmarshal(data, &cmd); err != nil {
					logger.Warn("unparseable client command", "error", err)
					continue
				}
				if cmd.Type == "text_input" {
					ctrl.FeedText(ctx, cmd.Content)
				}
			}
		}
	}
}
