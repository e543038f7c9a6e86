package store

import (
	"context"
	"time"
)

// TranscriptRecord is one persisted transcript segment.
type TranscriptRecord struct {
	UserID     string
	ClientID   string
	SessionID  string
	Source     string
	SpeakerTag string
	Transcript string
	Timestamp  time.Time
}

// ResponseRecord is one persisted advisor reply.
type ResponseRecord struct {
	UserID    string
	ClientID  string
	SessionID string
	Response  string
	Timestamp time.Time
}

type MeetingRecord struct {
	UserID    string
	ClientID  string
	SessionID string
	Title     string
	StartedAt time.Time
}

type SummaryRecord struct {
	UserID    string
	ClientID  string
	SessionID string
	Summary   string
	CreatedAt time.Time
}

type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessage struct {
	ChatID    string    `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ContactExtraction struct {
	UserID    string
	SessionID string
	// Data is the extracted contact JSON as returned by the model.
	Data []byte
	CreatedAt time.Time
}

// Store is the durable persistence boundary. Pipeline callers treat every
// failure as non-fatal; REST handlers surface them as 500s.
type Store interface {
	SaveTranscript(ctx context.Context, rec TranscriptRecord) error
	SaveResponse(ctx context.Context, rec ResponseRecord) error
	CreateMeeting(ctx context.Context, rec MeetingRecord) error
	SaveSummary(ctx context.Context, rec SummaryRecord) error

	CreateChat(ctx context.Context, chat ChatSession) error
	ListChats(ctx context.Context, userID string) ([]ChatSession, error)
	GetChatMessages(ctx context.Context, chatID string) ([]ChatMessage, error)
	AddChatMessage(ctx context.Context, msg ChatMessage) (time.Time, error)
	SetChatTitle(ctx context.Context, chatID, title string) error
	DeleteChat(ctx context.Context, chatID string) error

	SaveContactExtraction(ctx context.Context, rec ContactExtraction) error
}
