package llm

import (
	"context"
	"fmt"
	"time"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single text-generation request.
type Request struct {
	SystemPrompt string
	Prompt       string
	History      []Message
	Temperature  float64
	MaxTokens    int
}

// Client defines the interface for text-generation providers. Complete makes
// exactly one remote call; retries and quotas belong to the Gateway.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	HTTPTimeout time.Duration
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
