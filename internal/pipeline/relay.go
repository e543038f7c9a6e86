package pipeline

import (
	"context"
	"sync"

	"github.com/advisorly/transcriber/internal/recognizer"
)

// relayCapacity bounds how far the recognizer can run ahead of the drain
// loop before Put parks. Results are small; this is latency slack, not
// backpressure policy.
const relayCapacity = 64

// Relay hands recognition results from the adapter worker to the session's
// drain loop. Single producer, single consumer, FIFO. The producer closes
// it when the worker exits; a closed relay still drains whatever was queued.
type Relay struct {
	results chan recognizer.Result
	done    chan struct{}
	once    sync.Once
}

func NewRelay() *Relay {
	return &Relay{
		results: make(chan recognizer.Result, relayCapacity),
		done:    make(chan struct{}),
	}
}

// Put enqueues a result. Returns false once the relay is closed; the
// producer must not treat that as an error, only as a stop signal.
func (r *Relay) Put(res recognizer.Result) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.results <- res:
		return true
	case <-r.done:
		return false
	}
}

// Next blocks until a result is available, the relay is closed and drained,
// or ctx ends. The second return is false when no further results will come.
func (r *Relay) Next(ctx context.Context) (recognizer.Result, bool) {
	select {
	case res := <-r.results:
		return res, true
	case <-r.done:
		// closed, but queued results still count
		select {
		case res := <-r.results:
			return res, true
		default:
			return recognizer.Result{}, false
		}
	case <-ctx.Done():
		return recognizer.Result{}, false
	}
}

// Close marks the relay finished. Idempotent.
func (r *Relay) Close() {
	r.once.Do(func() { close(r.done) })
}
