package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/advisorly/transcriber/internal/metrics"
	"github.com/advisorly/transcriber/internal/recognizer"
)

// SessionInfo identifies one live connection.
type SessionInfo struct {
	UserID    string
	ClientID  string
	SessionID string
}

// ChannelConfig parameterizes the one session state machine shared by the
// mic, speaker and combined endpoints.
type ChannelConfig struct {
	// Source is the logical channel label ("mic", "speaker", "mic_and_speaker").
	Source string
	// AcceptText enables the direct text-query path alongside audio.
	AcceptText bool
	// GenerateReplies triggers the advisor responder per segment.
	GenerateReplies bool
	MinSpeakerCount int
	MaxSpeakerCount int
}

// Notification is the typed client-facing message shape.
type Notification struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Notifier forwards notifications to the connected client. A send failure
// is terminal for the session; implementations should tear the client
// connection down so the read loop unblocks.
type Notifier interface {
	Notify(n Notification) error
}

// SegmentSink durably stores finalized segments. Failures are contained;
// they never abort segment delivery.
type SegmentSink interface {
	SaveSegment(ctx context.Context, info SessionInfo, seg Segment) error
}

// Responder generates an advisor reply for a transcript segment or direct
// text query. It owns its own fault handling and always returns renderable
// text, a placeholder on failure.
type Responder interface {
	Respond(ctx context.Context, input string, info SessionInfo) string
}

// Controller orchestrates one session: it owns the adapter, relay and
// segmenter, feeds inbound audio, drains results, and delivers segments
// and replies to the client.
type Controller struct {
	info    SessionInfo
	channel ChannelConfig

	adapter   *StreamAdapter
	segmenter *Segmenter
	relay     *Relay

	sink      SegmentSink
	responder Responder
	notifier  Notifier
	logger    *log.Logger
	metrics   *metrics.SessionMetrics

	segments  chan Segment
	cancel    context.CancelFunc
	drainDone chan struct{}
	started   atomic.Bool
	stopOnce  sync.Once
}

func NewController(
	info SessionInfo,
	channel ChannelConfig,
	client recognizer.Client,
	sink SegmentSink,
	responder Responder,
	notifier Notifier,
	logger *log.Logger,
) *Controller {
	relay := NewRelay()
	cfg := recognizer.DefaultStreamConfig(channel.MinSpeakerCount, channel.MaxSpeakerCount)
	sessionLogger := logger.With("session", info.SessionID, "source", channel.Source)

	return &Controller{
		info:      info,
		channel:   channel,
		adapter:   NewStreamAdapter(channel.Source, client, cfg, relay, sessionLogger),
		segmenter: NewSegmenter(channel.Source),
		relay:     relay,
		sink:      sink,
		responder: responder,
		notifier:  notifier,
		logger:    sessionLogger,
		metrics:   metrics.NewSessionMetrics(channel.Source, info.SessionID),
		segments:  make(chan Segment, 16),
		drainDone: make(chan struct{}),
	}
}

// Start launches the recognition worker and the drain loop. Call at most once.
func (c *Controller) Start(ctx context.Context) {
	drainCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started.Store(true)
	c.adapter.Start(ctx)
	go c.drain(drainCtx)
	c.logger.Info("session started")
}

// FeedAudio forwards one inbound audio chunk. Accepted only while running.
func (c *Controller) FeedAudio(chunk []byte) {
	c.metrics.AddAudioBytes(len(chunk))
	c.adapter.AddAudio(chunk)
}

// FeedText handles a direct text query bypassing audio, when the channel
// allows it.
func (c *Controller) FeedText(ctx context.Context, text string) {
	if !c.channel.AcceptText {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.respond(ctx, text)
}

// Segments exposes the ordered, per-session segment stream. Single
// consumer, not restartable; closed when the session stops. The tap is
// lossy: delivery to the client never waits on it, and a segment is
// dropped (and logged) when the consumer falls more than the buffer
// behind.
func (c *Controller) Segments() <-chan Segment {
	return c.segments
}

// Stop tears the session down: end-of-input to the adapter, bounded worker
// join, drain cancellation, then release. Idempotent, and a no-op teardown
// on a controller that never started.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.started.Load() {
			c.adapter.Stop()
			c.cancel()
			<-c.drainDone
		}
		c.metrics.Finalize()
		c.logger.Info("session stopped", "summary", c.metrics.Summary())
	})
}

func (c *Controller) drain(ctx context.Context) {
	defer close(c.drainDone)
	defer close(c.segments)
	// releases a producer parked on a full relay once no one consumes
	defer c.relay.Close()

	for {
		res, ok := c.relay.Next(ctx)
		if !ok {
			return
		}
		c.metrics.AddResult(res.IsFinal)

		for _, seg := range c.segmenter.Process(res) {
			if !c.deliver(ctx, seg) {
				return
			}
			// observer tap, never blocks delivery
			select {
			case c.segments <- seg:
			default:
				c.logger.Warn("segment observer behind, dropping segment")
			}
		}
	}
}

// deliver persists and forwards one segment, then triggers the reply step
// on channels that generate replies. Persistence failure is logged and
// contained; a failed client send ends the session.
func (c *Controller) deliver(ctx context.Context, seg Segment) bool {
	c.metrics.AddSegment(seg.Content)

	if err := c.sink.SaveSegment(ctx, c.info, seg); err != nil {
		c.logger.Error("failed to save transcript", "error", err)
	}

	n := Notification{
		Type:      seg.Source + "_transcription",
		Content:   seg.Content,
		Timestamp: seg.Timestamp.Format(time.RFC3339),
	}
	if err := c.notifier.Notify(n); err != nil {
		c.logger.Error("failed to send transcription", "error", err)
		c.cancel()
		return false
	}

	if c.channel.GenerateReplies {
		return c.respond(ctx, seg.Content)
	}
	return true
}

// respond awaits a single advisor reply and sends the fixed two-message
// framing: a delta carrying the reply, then an empty completion marker.
func (c *Controller) respond(ctx context.Context, input string) bool {
	reply := c.responder.Respond(ctx, input, c.info)
	c.metrics.AddReply()

	if err := c.notifier.Notify(Notification{Type: "openai_assistant_delta", Content: reply}); err != nil {
		c.logger.Error("failed to send assistant delta", "error", err)
		c.cancel()
		return false
	}
	if err := c.notifier.Notify(Notification{Type: "openai_assistant_completed", Content: ""}); err != nil {
		c.logger.Error("failed to send assistant completion", "error", err)
		c.cancel()
		return false
	}
	return true
}
