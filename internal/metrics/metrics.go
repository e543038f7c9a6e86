package metrics

import (
	"fmt"
	"sync"
	"time"
)

// SessionMetrics tracks per-session pipeline counters. Safe for use from
// the read loop and the drain loop concurrently.
type SessionMetrics struct {
	Source           string
	SessionID        string
	StartTime        time.Time
	EndTime          time.Time
	AudioBytes       int
	FinalResults     int
	PartialResults   int
	Segments         int
	Replies          int
	TranscriptLength int
	FirstResultTime  *time.Time
	mu               sync.Mutex
}

func NewSessionMetrics(source, sessionID string) *SessionMetrics {
	return &SessionMetrics{
		Source:    source,
		SessionID: sessionID,
		StartTime: time.Now(),
	}
}

func (m *SessionMetrics) AddAudioBytes(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioBytes += bytes
}

func (m *SessionMetrics) AddResult(isFinal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FirstResultTime == nil {
		now := time.Now()
		m.FirstResultTime = &now
	}

	if isFinal {
		m.FinalResults++
	} else {
		m.PartialResults++
	}
}

func (m *SessionMetrics) AddSegment(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Segments++
	m.TranscriptLength += len(content)
}

func (m *SessionMetrics) AddReply() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies++
}

func (m *SessionMetrics) Finalize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
}

// Summary renders a one-line digest for the session-end log.
func (m *SessionMetrics) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.EndTime.Sub(m.StartTime)
	var latency time.Duration
	if m.FirstResultTime != nil {
		latency = m.FirstResultTime.Sub(m.StartTime)
	}

	// 16kHz, 16-bit mono
	audioSeconds := float64(m.AudioBytes) / (16000 * 2)

	return fmt.Sprintf(
		"duration=%v audio=%.2fs results=%d/%d segments=%d replies=%d transcript_chars=%d first_result_latency=%v",
		duration.Round(time.Millisecond),
		audioSeconds,
		m.FinalResults,
		m.PartialResults,
		m.Segments,
		m.Replies,
		m.TranscriptLength,
		latency.Round(time.Millisecond),
	)
}
