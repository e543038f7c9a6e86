package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/advisorly/transcriber/internal/advisor"
	"github.com/advisorly/transcriber/internal/store"
)

const userIDHeader = "X-User-ID"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are gone; nothing left to do
		return
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// requireToken guards the advisor-chat surface. Token validation proper is
// an external concern; here the bearer token is checked against the
// configured API token and the user id comes from a trusted header.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if s.cfg.Auth.APIToken == "" || token != s.cfg.Auth.APIToken {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if r.Header.Get(userIDHeader) == "" {
			writeError(w, http.StatusUnauthorized, "User not found or token invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type meetingPayload struct {
	Title string `json:"title"`
}

func (s *Server) handleStartMeeting(w http.ResponseWriter, r *http.Request) {
	info, err := sessionFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload meetingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := store.MeetingRecord{
		UserID:    info.UserID,
		ClientID:  info.ClientID,
		SessionID: info.SessionID,
		Title:     payload.Title,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMeeting(r.Context(), rec); err != nil {
		s.logger.Error("failed to create meeting", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create meeting.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Meeting started.",
	})
}

type summarizePayload struct {
	Messages []advisor.Message `json:"messages"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	info, err := sessionFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload summarizePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.advisor.Summarize(r.Context(), payload.Messages)
	if err != nil {
		s.logger.Error("failed to summarize conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Summarization failed.")
		return
	}

	rec := store.SummaryRecord{
		UserID:    info.UserID,
		ClientID:  info.ClientID,
		SessionID: info.SessionID,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveSummary(r.Context(), rec); err != nil {
		s.logger.Error("failed to save summary", "error", err)
		writeError(w, http.StatusInternalServerError, "Summarization failed.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleExtractContact(w http.ResponseWriter, r *http.Request) {
	info, err := sessionFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload summarizePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contact, raw, err := s.advisor.ExtractContact(r.Context(), payload.Messages)
	if err != nil {
		s.logger.Error("contact extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Contact extraction failed.")
		return
	}

	// persistence is optional here; the extraction result still goes back
	rec := store.ContactExtraction{
		UserID:    info.UserID,
		SessionID: info.SessionID,
		Data:      raw,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveContactExtraction(r.Context(), rec); err != nil {
		s.logger.Warn("failed to save extracted contact", "error", err)
	}

	writeJSON(w, http.StatusOK, contact)
}

type createChatPayload struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload createChatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chat := store.ChatSession{
		ID:        uuid.NewString(),
		UserID:    r.Header.Get(userIDHeader),
		Title:     payload.Title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateChat(r.Context(), chat); err != nil {
		s.logger.Error("failed to create chat", "error", err)
		writeError(w, http.StatusInternalServerError, "Chat creation failed")
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ListChats(r.Context(), r.Header.Get(userIDHeader))
	if err != nil {
		s.logger.Error("failed to list chats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load chats")
		return
	}
	if chats == nil {
		chats = []store.ChatSession{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleGetChatMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.GetChatMessages(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		s.logger.Error("failed to load chat messages", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []store.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

type chatMessagePayload struct {
	Prompt  string          `json:"prompt"`
	Contact json.RawMessage `json:"contact,omitempty"`
}

func (s *Server) handleSendChatMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var payload chatMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.store.AddChatMessage(r.Context(), store.ChatMessage{
		ChatID: chatID, Role: "user", Content: payload.Prompt,
	}); err != nil {
		s.logger.Error("failed to save user message", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	if len(payload.Contact) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, payload.Contact, "", "  "); err == nil {
			attachment := "[Contact Attached]\n" + pretty.String()
			if _, err := s.store.AddChatMessage(r.Context(), store.ChatMessage{
				ChatID: chatID, Role: "user", Content: attachment,
			}); err != nil {
				s.logger.Warn("failed to save contact attachment", "error", err)
			}
		}
	}

	history, err := s.store.GetChatMessages(r.Context(), chatID)
	if err != nil {
		s.logger.Error("failed to fetch chat history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch chat history")
		return
	}

	reply, err := s.advisor.ChatReply(r.Context(), history)
	if err != nil {
		s.logger.Error("chat reply generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "LLM generation failed")
		return
	}

	ts, err := s.store.AddChatMessage(r.Context(), store.ChatMessage{
		ChatID: chatID, Role: "assistant", Content: reply,
	})
	if err != nil {
		s.logger.Error("failed to save assistant message", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not save assistant message")
		return
	}

	// first exchange names the chat after the opening prompt
	if isFirstExchange(history) {
		title := truncateTitle(payload.Prompt, 50)
		if err := s.store.SetChatTitle(r.Context(), chatID, title); err != nil {
			s.logger.Warn("failed to set chat title", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, store.ChatMessage{
		Role: "assistant", Content: reply, Timestamp: ts,
	})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		s.logger.Error("failed to delete chat", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// truncateTitle caps a chat title at max characters without splitting a
// multibyte rune.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max])
}

// isFirstExchange reports whether the history holds exactly one user
// message and no assistant reply yet (the attachment message does not
// count as a second turn for titling purposes).
func isFirstExchange(history []store.ChatMessage) bool {
	users, assistants := 0, 0
	for _, m := range history {
		switch m.Role {
		case "user":
			if !strings.HasPrefix(m.Content, "[Contact Attached]") {
				users++
			}
		case "assistant":
			assistants++
		}
	}
	return users == 1 && assistants == 0
}
