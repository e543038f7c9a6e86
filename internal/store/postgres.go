package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meetings (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			source TEXT NOT NULL,
			speaker_tag TEXT NOT NULL,
			transcript TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS openai_responses (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			openai_response TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS advisor_chats (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS advisor_messages (
			id BIGSERIAL PRIMARY KEY,
			chat_id UUID NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS contact_extractions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			extracted_data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) SaveTranscript(ctx context.Context, rec TranscriptRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO conversations (user_id, client_id, session_id, source, speaker_tag, transcript, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UserID, rec.ClientID, rec.SessionID, rec.Source, rec.SpeakerTag, rec.Transcript, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("transcript insert: %w", err)
	}
	return nil
}

func (p *Postgres) SaveResponse(ctx context.Context, rec ResponseRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO openai_responses (user_id, client_id, session_id, openai_response, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.UserID, rec.ClientID, rec.SessionID, rec.Response, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("response insert: %w", err)
	}
	return nil
}

func (p *Postgres) CreateMeeting(ctx context.Context, rec MeetingRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO meetings (user_id, client_id, session_id, title, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.UserID, rec.ClientID, rec.SessionID, rec.Title, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("meeting insert: %w", err)
	}
	return nil
}

func (p *Postgres) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO summaries (user_id, client_id, session_id, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.UserID, rec.ClientID, rec.SessionID, rec.Summary, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("summary insert: %w", err)
	}
	return nil
}

func (p *Postgres) CreateChat(ctx context.Context, chat ChatSession) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO advisor_chats (id, user_id, title, created_at)
		 VALUES ($1, $2, $3, $4)`,
		chat.ID, chat.UserID, chat.Title, chat.CreatedAt)
	if err != nil {
		return fmt.Errorf("chat insert: %w", err)
	}
	return nil
}

func (p *Postgres) ListChats(ctx context.Context, userID string) ([]ChatSession, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, title, created_at FROM advisor_chats
		 WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("chat query: %w", err)
	}
	defer rows.Close()

	var chats []ChatSession
	for rows.Next() {
		var c ChatSession
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat scan: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (p *Postgres) GetChatMessages(ctx context.Context, chatID string) ([]ChatMessage, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT chat_id, role, content, timestamp FROM advisor_messages
		 WHERE chat_id = $1 ORDER BY timestamp`, chatID)
	if err != nil {
		return nil, fmt.Errorf("message query: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ChatID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("message scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (p *Postgres) AddChatMessage(ctx context.Context, msg ChatMessage) (time.Time, error) {
	var ts time.Time
	err := p.pool.QueryRow(ctx,
		`INSERT INTO advisor_messages (chat_id, role, content)
		 VALUES ($1, $2, $3) RETURNING timestamp`,
		msg.ChatID, msg.Role, msg.Content).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("message insert: %w", err)
	}
	return ts, nil
}

func (p *Postgres) SetChatTitle(ctx context.Context, chatID, title string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE advisor_chats SET title = $2 WHERE id = $1`, chatID, title)
	if err != nil {
		return fmt.Errorf("chat title update: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteChat(ctx context.Context, chatID string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM advisor_messages WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("message delete: %w", err)
	}
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM advisor_chats WHERE id = $1`, chatID); err != nil {
		return fmt.Errorf("chat delete: %w", err)
	}
	return nil
}

func (p *Postgres) SaveContactExtraction(ctx context.Context, rec ContactExtraction) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO contact_extractions (user_id, session_id, extracted_data, created_at)
		 VALUES ($1, $2, $3, $4)`,
		rec.UserID, rec.SessionID, rec.Data, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("contact insert: %w", err)
	}
	return nil
}
