package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/advisorly/transcriber/internal/pipeline"
	"github.com/advisorly/transcriber/internal/store"
)

// Placeholder replies returned to the client when generation fails. The
// pipeline never sees an error from this package.
const (
	rateLimitReply    = "<h4>Rate Limit</h4><br></br>The service is busy; please try again shortly."
	badRequestReply   = "<h4>Error</h4><br></br>There was an issue with your request."
	genericErrorReply = "<h4>Error</h4><br></br>Sorry, I couldn't process that at the moment."
)

// Message is one speaker-attributed line of a conversation handed to the
// summarizer or contact extractor.
type Message struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// completionAPI is the slice of the OpenAI client we depend on; tests
// substitute a scripted implementation.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates advisor replies, summaries, chat completions and contact
// extractions. It is process-wide and immutable after construction.
type Client struct {
	api       completionAPI
	model     string
	maxTokens int
	search    *SearchClient
	store     store.Store
	logger    *log.Logger
}

// New builds a Client on the real OpenAI API. search and st may be nil to
// disable web context and reply persistence respectively.
func New(apiKey, model string, maxTokens int, search *SearchClient, st store.Store, logger *log.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openai.GPT4o
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Client{
		api:       openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		search:    search,
		store:     st,
		logger:    logger,
	}, nil
}

// Respond implements pipeline.Responder: one formatted advisor reply per
// segment or direct text query. All failures collapse into placeholder
// HTML; substantive replies are persisted best-effort.
func (c *Client) Respond(ctx context.Context, input string, info pipeline.SessionInfo) string {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: advisorSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: input},
	}

	if c.search != nil {
		results, err := c.search.Search(ctx, input)
		if err != nil {
			c.logger.Warn("web search failed", "error", err)
		} else if len(results) > 0 {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Web Search Results:\n" + strings.Join(results, "\n"),
			})
		}
	}

	content, err := c.complete(ctx, messages, c.maxTokens, 0.7)
	if err != nil {
		c.logger.Error("advisor completion failed", "error", err)
		return placeholderFor(err)
	}

	if content != waitingReply && c.store != nil {
		rec := store.ResponseRecord{
			UserID:    info.UserID,
			ClientID:  info.ClientID,
			SessionID: info.SessionID,
			Response:  content,
			Timestamp: time.Now().UTC(),
		}
		if err := c.store.SaveResponse(ctx, rec); err != nil {
			c.logger.Error("failed to save advisor response", "error", err)
		}
	}

	return content
}

// Summarize condenses a conversation into a concise professional summary.
func (c *Client) Summarize(ctx context.Context, messages []Message) (string, error) {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Speaker, m.Text)
	}
	prompt := "Summarize the following conversation in a concise and professional tone:\n\n" + sb.String()

	return c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, 512, 0.5)
}

// ChatReply answers the latest message of a stored advisor chat given its
// full history.
func (c *Client) ChatReply(ctx context.Context, history []store.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return c.complete(ctx, messages, 800, 0.6)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        1.0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func placeholderFor(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return rateLimitReply
		case http.StatusBadRequest:
			return badRequestReply
		}
	}
	return genericErrorReply
}
