package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	deepSeekEndpoint = "https://api.deepseek.com/chat/completions"
	openAIEndpoint   = "https://api.openai.com/v1/chat/completions"

	maxErrorBody = 512
)

// openAIClient implements the Client interface for OpenAI-compatible chat
// completion APIs. DeepSeek speaks the same protocol.
type openAIClient struct {
	httpClient *http.Client
	provider   string
	apiKey     string
	model      string
	endpoint   string
	maxTokens  int
}

// newOpenAIClient creates a new OpenAI-compatible API client.
func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderDeepSeek
	}

	model := cfg.Model
	endpoint := cfg.BaseURL
	switch provider {
	case ProviderOpenAI:
		if model == "" {
			model = "gpt-4o-mini"
		}
		if endpoint == "" {
			endpoint = openAIEndpoint
		}
	default:
		if model == "" {
			model = "deepseek-chat"
		}
		if endpoint == "" {
			endpoint = deepSeekEndpoint
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &openAIClient{
		provider:  provider,
		apiKey:    cfg.APIKey,
		model:     model,
		endpoint:  endpoint,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Complete sends one chat completion request.
func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: RoleUser, Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	requestBody := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": req.Temperature,
		"max_tokens":  maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return response.Choices[0].Message.Content, nil
}

// openAIResponse represents the chat completion response envelope.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
