package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/advisorly/transcriber/internal/advisor"
	"github.com/advisorly/transcriber/internal/config"
	"github.com/advisorly/transcriber/internal/pipeline"
	"github.com/advisorly/transcriber/internal/recognizer"
	"github.com/advisorly/transcriber/internal/store"
)

// AdvisorService is the non-streaming slice of the advisor client used by
// the REST handlers.
type AdvisorService interface {
	Summarize(ctx context.Context, messages []advisor.Message) (string, error)
	ChatReply(ctx context.Context, history []store.ChatMessage) (string, error)
	ExtractContact(ctx context.Context, messages []advisor.Message) (*advisor.Contact, json.RawMessage, error)
}

// Server hosts the WebSocket transcription endpoints and the REST surface
// around them. All collaborators are process-wide handles injected once at
// construction.
type Server struct {
	cfg        *config.Config
	logger     *log.Logger
	store      store.Store
	registry   *store.SessionRegistry
	recognizer recognizer.Client
	advisor    AdvisorService
	responder  pipeline.Responder

	httpServer *http.Server

	mu       sync.Mutex
	sessions map[*pipeline.Controller]struct{}
}

func New(
	cfg *config.Config,
	st store.Store,
	registry *store.SessionRegistry,
	rec recognizer.Client,
	adv AdvisorService,
	responder pipeline.Responder,
	logger *log.Logger,
) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		registry:   registry,
		recognizer: rec,
		advisor:    adv,
		responder:  responder,
		sessions:   make(map[*pipeline.Controller]struct{}),
	}

	r := chi.NewRouter()

	// streaming channels share one handler, parameterized per channel
	r.Get("/mic", s.handleStream(s.channelConfig("mic", false, false)))
	r.Get("/speaker", s.handleStream(s.channelConfig("speaker", false, true)))
	r.Get("/mic_and_speaker", s.handleStream(s.channelConfig("mic_and_speaker", true, true)))

	r.Post("/meetings/start", s.handleStartMeeting)
	r.Post("/summarize", s.handleSummarize)
	r.Post("/extract_contact", s.handleExtractContact)

	r.Route("/advisor-chats", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/", s.handleCreateChat)
		r.Get("/", s.handleListChats)
		r.Get("/{chatID}", s.handleGetChatMessages)
		r.Post("/{chatID}", s.handleSendChatMessage)
		r.Delete("/{chatID}", s.handleDeleteChat)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: r}

	return s
}

func (s *Server) channelConfig(source string, acceptText, replies bool) pipeline.ChannelConfig {
	return pipeline.ChannelConfig{
		Source:          source,
		AcceptText:      acceptText,
		GenerateReplies: replies,
		MinSpeakerCount: s.cfg.Gateway.MinSpeakerCount,
		MaxSpeakerCount: s.cfg.Gateway.MaxSpeakerCount,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Stop or a listener error.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts down the listener and tears down every live session.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown", "error", err)
	}

	s.mu.Lock()
	live := make([]*pipeline.Controller, 0, len(s.sessions))
	for ctrl := range s.sessions {
		live = append(live, ctrl)
	}
	s.mu.Unlock()

	for _, ctrl := range live {
		ctrl.Stop()
	}
}

func (s *Server) trackSession(ctrl *pipeline.Controller) {
	s.mu.Lock()
	s.sessions[ctrl] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackSession(ctrl *pipeline.Controller) {
	s.mu.Lock()
	delete(s.sessions, ctrl)
	s.mu.Unlock()
}

// sessionFromQuery resolves the (user, client, conversation) triple every
// session-scoped endpoint requires.
func sessionFromQuery(r *http.Request) (pipeline.SessionInfo, error) {
	q := r.URL.Query()
	info := pipeline.SessionInfo{
		UserID:    q.Get("userId"),
		ClientID:  q.Get("clientId"),
		SessionID: q.Get("sessionId"),
	}
	if info.UserID == "" || info.ClientID == "" || info.SessionID == "" {
		return pipeline.SessionInfo{}, fmt.Errorf("userId, clientId and sessionId query parameters are required")
	}
	return info, nil
}

// transcriptSink adapts the durable store to the pipeline's segment sink.
type transcriptSink struct {
	store store.Store
}

func (t *transcriptSink) SaveSegment(ctx context.Context, info pipeline.SessionInfo, seg pipeline.Segment) error {
	return t.store.SaveTranscript(ctx, store.TranscriptRecord{
		UserID:     info.UserID,
		ClientID:   info.ClientID,
		SessionID:  info.SessionID,
		Source:     seg.Source,
		SpeakerTag: fmt.Sprintf("Speaker_%d", seg.SpeakerTag),
		Transcript: seg.Content,
		Timestamp:  seg.Timestamp,
	})
}
