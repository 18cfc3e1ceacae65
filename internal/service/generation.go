package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
)

// RunError is the reason a run ended without output.
type RunError struct {
	Code    string
	Message string
}

// Run is the subset of an assistant run the poller needs.
type Run struct {
	ID        string
	ThreadID  string
	Status    string
	LastError *RunError
}

// GenerationClient is the external assistant service: threads, messages and runs.
type GenerationClient interface {
	CreateThread(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, threadID, content string) error
	StartRun(ctx context.Context, threadID, assistantID string) (string, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	LatestMessage(ctx context.Context, threadID string) (string, error)
}

// AssistantClient talks to the OpenAI Assistants v2 API through go-openai.
type AssistantClient struct {
	client *openai.Client
	log    *zap.Logger
}

// NewAssistantClient creates a client. The API key is sent as a bearer
// token and never logged.
func NewAssistantClient(apiKey, baseURL string, log *zap.Logger) *AssistantClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return &AssistantClient{client: openai.NewClientWithConfig(cfg), log: log}
}

func (c *AssistantClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", c.upstream("create thread", err)
	}
	return thread.ID, nil
}

func (c *AssistantClient) AddMessage(ctx context.Context, threadID, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return c.upstream("add message", err)
	}
	return nil
}

func (c *AssistantClient) StartRun(ctx context.Context, threadID, assistantID string) (string, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return "", c.upstream("start run", err)
	}
	return run.ID, nil
}

func (c *AssistantClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, c.upstream("get run", err)
	}
	out := &Run{ID: run.ID, ThreadID: run.ThreadID, Status: string(run.Status)}
	if run.LastError != nil {
		out.LastError = &RunError{Code: string(run.LastError.Code), Message: run.LastError.Message}
	}
	return out, nil
}

// LatestMessage returns the text of the most recent message in the thread.
func (c *AssistantClient) LatestMessage(ctx context.Context, threadID string) (string, error) {
	limit, order := 1, "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", c.upstream("list messages", err)
	}
	if len(list.Messages) == 0 {
		return "", apperrors.Upstream("assistant thread has no messages", nil)
	}
	for _, part := range list.Messages[0].Content {
		if part.Type == "text" && part.Text != nil && part.Text.Value != "" {
			return part.Text.Value, nil
		}
	}
	return "", apperrors.Upstream("invalid message format received from assistant", nil)
}

// upstream maps SDK errors onto Upstream, keeping the API's own message.
func (c *AssistantClient) upstream(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		c.log.Warn("assistant request failed",
			zap.String("op", op),
			zap.Int("status", apiErr.HTTPStatusCode),
		)
		return apperrors.Upstream(fmt.Sprintf("assistant %s returned %d", op, apiErr.HTTPStatusCode), errors.New(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		c.log.Warn("assistant request failed",
			zap.String("op", op),
			zap.Int("status", reqErr.HTTPStatusCode),
		)
		return apperrors.Upstream(fmt.Sprintf("assistant %s returned %d", op, reqErr.HTTPStatusCode), err)
	}
	return apperrors.Upstream("assistant service unreachable", err)
}
