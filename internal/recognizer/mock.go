package recognizer

import (
	"context"
	"io"
	"sync"
)

// MockClient replays scripted results so the pipeline can be exercised
// without a live gateway.
type MockClient struct {
	Results []Result
	DialErr error

	mu      sync.Mutex
	streams []*MockStream
}

func (m *MockClient) Stream(_ context.Context, cfg StreamConfig) (Stream, error) {
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	s := &MockStream{
		Config:  cfg,
		results: make(chan Result, len(m.Results)+1),
		done:    make(chan struct{}),
	}
	for _, r := range m.Results {
		s.results <- r
	}
	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

// LastStream returns the most recently opened stream, or nil.
func (m *MockClient) LastStream() *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

type MockStream struct {
	Config StreamConfig

	mu      sync.Mutex
	sent    [][]byte
	results chan Result
	done    chan struct{}
	closed  bool
}

func (s *MockStream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	s.sent = append(s.sent, buf)
	return nil
}

func (s *MockStream) Recv() (Result, error) {
	select {
	case r := <-s.results:
		return r, nil
	case <-s.done:
		// drain anything scripted before the close won the race
		select {
		case r := <-s.results:
			return r, nil
		default:
			return Result{}, io.EOF
		}
	}
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

// Emit injects an extra result after the stream is live.
func (s *MockStream) Emit(r Result) {
	s.results <- r
}

// Sent returns the audio chunks forwarded upstream so far.
func (s *MockStream) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// Closed reports whether Close has been called.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
