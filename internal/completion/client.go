// Package completion sends note text to an OpenAI-compatible chat completion
// endpoint and returns the raw reply.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the service answers without any choice.
var ErrNoChoices = errors.New("completion response has no choices")

// Config holds the completion endpoint settings.
type Config struct {
	// BaseURL is the server root; requests go to {BaseURL}/v1/chat/completions.
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient is optional and mostly useful in tests.
	HTTPClient *http.Client
}

// Client calls the completion endpoint. It performs exactly one request per
// call and never retries.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a completion client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("completion base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("completion model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	} else {
		// Per-call deadlines come from the caller's context.
		clientConfig.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

// Complete sends content as a single user message and returns the text of the
// first choice. Empty content returns "" without touching the network.
func (c *Client) Complete(ctx context.Context, content string) (string, error) {
	if content == "" {
		return "", nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: content,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
