package pipeline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/advisorly/transcriber/internal/recognizer"
)

const (
	// audioQueueSize holds ~25s of 100ms chunks; the queue exists to absorb
	// jitter, a full queue means the gateway stopped accepting audio.
	audioQueueSize = 256

	// workerJoinTimeout is how long Stop waits for the worker goroutine
	// before abandoning it.
	workerJoinTimeout = 5 * time.Second
)

// StreamAdapter bridges the session's event loop and one blocking streaming
// recognition call. A dedicated worker owns the recognizer stream; audio
// crosses over on a bounded queue, results come back through the Relay.
type StreamAdapter struct {
	source string
	client recognizer.Client
	cfg    recognizer.StreamConfig
	relay  *Relay
	logger *log.Logger

	// audioQ carries chunks to the worker; a nil element is the
	// end-of-input sentinel.
	audioQ     chan []byte
	running    atomic.Bool
	workerDone chan struct{}
	stopOnce   sync.Once
}

func NewStreamAdapter(source string, client recognizer.Client, cfg recognizer.StreamConfig, relay *Relay, logger *log.Logger) *StreamAdapter {
	return &StreamAdapter{
		source:     source,
		client:     client,
		cfg:        cfg,
		relay:      relay,
		logger:     logger.With("source", source),
		audioQ:     make(chan []byte, audioQueueSize),
		workerDone: make(chan struct{}),
	}
}

// Start launches the worker. Call at most once.
func (a *StreamAdapter) Start(ctx context.Context) {
	a.running.Store(true)
	go a.worker(ctx)
}

// AddAudio enqueues a chunk for the worker. No-op when the adapter is not
// running; never blocks the caller. A chunk is dropped (and logged) if the
// queue is full.
func (a *StreamAdapter) AddAudio(chunk []byte) {
	if len(chunk) == 0 || !a.running.Load() {
		return
	}
	select {
	case a.audioQ <- chunk:
	default:
		a.logger.Warn("audio queue full, dropping chunk", "bytes", len(chunk))
	}
}

// Stop signals end-of-input and waits for the worker to exit, bounded by
// workerJoinTimeout. Idempotent. A worker that does not exit in time is
// abandoned and reported, never force-killed.
func (a *StreamAdapter) Stop() {
	a.stopOnce.Do(func() {
		a.running.Store(false)

		select {
		case a.audioQ <- nil:
		case <-a.workerDone:
			return
		case <-time.After(workerJoinTimeout):
			a.logger.Warn("audio queue blocked, could not deliver stop sentinel")
			return
		}

		select {
		case <-a.workerDone:
		case <-time.After(workerJoinTimeout):
			a.logger.Warn("recognizer worker did not exit in time, abandoning")
		}
	})
}

// worker owns the recognizer stream for the session's lifetime. It closes
// the relay on exit; absence of further results is the only signal that
// crosses back into the consuming context.
func (a *StreamAdapter) worker(ctx context.Context) {
	defer close(a.workerDone)
	defer a.relay.Close()

	stream, err := a.client.Stream(ctx, a.cfg)
	if err != nil {
		a.logger.Error("failed to open recognition stream", "error", err)
		a.drainUntilSentinel()
		return
	}

	// Feeder pulls chunks until the sentinel, then closes the upstream
	// side so the gateway flushes its final results.
	go func() {
		for chunk := range a.audioQ {
			if chunk == nil {
				break
			}
			if err := stream.Send(chunk); err != nil {
				a.logger.Error("failed to send audio chunk", "error", err)
				break
			}
		}
		if err := stream.Close(); err != nil {
			a.logger.Debug("recognition stream close", "error", err)
		}
	}()

	for {
		res, err := stream.Recv()
		if err != nil {
			if err != io.EOF {
				a.logger.Error("recognition stream error", "error", err)
			}
			return
		}
		// a closed relay means the consumer is gone; stop producing
		if !a.relay.Put(res) {
			return
		}
	}
}

// drainUntilSentinel keeps the queue moving when the stream never opened,
// so Stop can still hand over its sentinel and return promptly.
func (a *StreamAdapter) drainUntilSentinel() {
	for chunk := range a.audioQ {
		if chunk == nil {
			return
		}
	}
}
