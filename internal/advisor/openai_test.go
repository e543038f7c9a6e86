package advisor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/advisorly/transcriber/internal/pipeline"
	"github.com/advisorly/transcriber/internal/store"
)

// fakeAPI scripts one completion answer and records everything sent to it.
type fakeAPI struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	content  string
	err      error
}

func (f *fakeAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: f.content},
		}},
	}, nil
}

func (f *fakeAPI) lastRequest(t *testing.T) openai.ChatCompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no completion request was made")
	}
	return f.requests[len(f.requests)-1]
}

// responseRecorder captures SaveResponse calls; everything else on the
// Store interface is off-limits for these tests.
type responseRecorder struct {
	store.Store
	mu    sync.Mutex
	saved []store.ResponseRecord
}

func (r *responseRecorder) SaveResponse(_ context.Context, rec store.ResponseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, rec)
	return nil
}

func newTestClient(api completionAPI, st store.Store) *Client {
	return &Client{
		api:       api,
		model:     openai.GPT4o,
		maxTokens: 2048,
		store:     st,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
}

var testInfo = pipeline.SessionInfo{UserID: "u1", ClientID: "c1", SessionID: "s1"}

func TestRespondPersistsReply(t *testing.T) {
	api := &fakeAPI{content: "<h4>ISAs</h4><br></br>You can contribute up to the annual allowance."}
	recorder := &responseRecorder{}
	client := newTestClient(api, recorder)

	reply := client.Respond(context.Background(), "tell me about ISA limits", testInfo)

	if reply != api.content {
		t.Errorf("unexpected reply %q", reply)
	}

	req := api.lastRequest(t)
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Error("first message should be the system prompt")
	}
	if got := req.Messages[len(req.Messages)-1].Content; got != "tell me about ISA limits" {
		t.Errorf("user input not forwarded, got %q", got)
	}

	if len(recorder.saved) != 1 {
		t.Fatalf("expected 1 persisted response, got %d", len(recorder.saved))
	}
	rec := recorder.saved[0]
	if rec.UserID != "u1" || rec.SessionID != "s1" || rec.Response != reply {
		t.Errorf("unexpected persisted record %+v", rec)
	}
}

func TestRespondWaitingReplyNotPersisted(t *testing.T) {
	api := &fakeAPI{content: waitingReply}
	recorder := &responseRecorder{}
	client := newTestClient(api, recorder)

	reply := client.Respond(context.Background(), "good morning", testInfo)

	if reply != waitingReply {
		t.Errorf("unexpected reply %q", reply)
	}
	if len(recorder.saved) != 0 {
		t.Error("the waiting reply must not be persisted")
	}
}

func TestRespondPlaceholders(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rate limited",
			err:  &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
			want: rateLimitReply,
		},
		{
			name: "bad request",
			err:  &openai.APIError{HTTPStatusCode: http.StatusBadRequest},
			want: badRequestReply,
		},
		{
			name: "server error",
			err:  &openai.APIError{HTTPStatusCode: http.StatusInternalServerError},
			want: genericErrorReply,
		},
		{
			name: "transport error",
			err:  errors.New("connection refused"),
			want: genericErrorReply,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{err: tc.err}
			recorder := &responseRecorder{}
			client := newTestClient(api, recorder)

			reply := client.Respond(context.Background(), "query", testInfo)

			if reply != tc.want {
				t.Errorf("expected placeholder %q, got %q", tc.want, reply)
			}
			if len(recorder.saved) != 0 {
				t.Error("failed completions must not be persisted")
			}
		})
	}
}

func TestRespondWithoutStore(t *testing.T) {
	api := &fakeAPI{content: "advice"}
	client := newTestClient(api, nil)

	if got := client.Respond(context.Background(), "query", testInfo); got != "advice" {
		t.Errorf("unexpected reply %q", got)
	}
}

func TestSummarizeFormatsTranscript(t *testing.T) {
	api := &fakeAPI{content: "They discussed pension drawdown."}
	client := newTestClient(api, nil)

	summary, err := client.Summarize(context.Background(), []Message{
		{Speaker: "Speaker_1", Text: "Shall we talk about your pension?"},
		{Speaker: "Speaker_2", Text: "Yes please."},
	})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "They discussed pension drawdown." {
		t.Errorf("unexpected summary %q", summary)
	}

	req := api.lastRequest(t)
	user := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(user, "Speaker_1: Shall we talk about your pension?\n") {
		t.Errorf("transcript lines missing from prompt: %q", user)
	}
	if req.MaxTokens != 512 {
		t.Errorf("expected summary token cap 512, got %d", req.MaxTokens)
	}
}

func TestChatReplyCarriesHistory(t *testing.T) {
	api := &fakeAPI{content: "You should review your emergency fund first."}
	client := newTestClient(api, nil)

	history := []store.ChatMessage{
		{Role: "user", Content: "Where do I start?"},
		{Role: "assistant", Content: "With your goals."},
		{Role: "user", Content: "And then?"},
	}
	reply, err := client.ChatReply(context.Background(), history)
	if err != nil {
		t.Fatalf("ChatReply failed: %v", err)
	}
	if reply == "" {
		t.Fatal("empty reply")
	}

	req := api.lastRequest(t)
	if len(req.Messages) != len(history)+1 {
		t.Fatalf("expected system prompt plus history, got %d messages", len(req.Messages))
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Error("first message should be the system prompt")
	}
	for i, m := range history {
		if req.Messages[i+1].Content != m.Content {
			t.Errorf("history message %d not forwarded: %q", i, req.Messages[i+1].Content)
		}
	}
}

func TestExtractContact(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"bare json", `{"name":"Jordan Smith","email":"jordan@example.com"}`},
		{"fenced json", "```json\n{\"name\":\"Jordan Smith\",\"email\":\"jordan@example.com\"}\n```"},
		{"fenced without language", "```\n{\"name\":\"Jordan Smith\",\"email\":\"jordan@example.com\"}\n```"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{content: tc.content}
			client := newTestClient(api, nil)

			contact, raw, err := client.ExtractContact(context.Background(), []Message{
				{Speaker: "Speaker_2", Text: "I'm Jordan Smith, jordan@example.com"},
			})
			if err != nil {
				t.Fatalf("ExtractContact failed: %v", err)
			}
			if contact.Name != "Jordan Smith" || contact.Email != "jordan@example.com" {
				t.Errorf("unexpected contact %+v", contact)
			}
			if !strings.HasPrefix(string(raw), "{") {
				t.Errorf("raw JSON should have fences stripped, got %q", raw)
			}

			req := api.lastRequest(t)
			if req.Temperature != 0 {
				t.Errorf("extraction should run at temperature 0, got %v", req.Temperature)
			}
		})
	}
}

func TestExtractContactInvalidJSON(t *testing.T) {
	api := &fakeAPI{content: "I could not find any contact details."}
	client := newTestClient(api, nil)

	if _, _, err := client.ExtractContact(context.Background(), nil); err == nil {
		t.Error("expected an error for a non-JSON extraction response")
	}
}
