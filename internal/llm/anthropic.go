package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient implements the Client interface on the official SDK.
type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// newAnthropicClient creates a new Anthropic API client. SDK-level retries
// are disabled; the Gateway owns the retry policy.
func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Complete sends one Messages API request.
func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Body: truncate(apiErr.Error(), maxErrorBody)}
		}
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return text.String(), nil
}
