package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name         string
		config       Config
		wantEndpoint string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "deepseek defaults",
			config:       Config{APIKey: "test-key"},
			wantEndpoint: deepSeekEndpoint,
			wantModel:    "deepseek-chat",
		},
		{
			name:         "openai defaults",
			config:       Config{Provider: ProviderOpenAI, APIKey: "test-key"},
			wantEndpoint: openAIEndpoint,
			wantModel:    "gpt-4o-mini",
		},
		{
			name:         "base url override",
			config:       Config{APIKey: "test-key", BaseURL: "http://localhost:9999/v1", Model: "custom"},
			wantEndpoint: "http://localhost:9999/v1",
			wantModel:    "custom",
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEndpoint, client.endpoint)
			assert.Equal(t, tt.wantModel, client.model)
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var captured struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
		MaxTokens   int       `json:"max_tokens"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"You spent 42 EUR."}}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), Request{
		SystemPrompt: "system",
		Prompt:       "how much?",
		History: []Message{
			{Role: RoleUser, Content: "earlier question"},
			{Role: RoleAssistant, Content: "earlier answer"},
		},
		Temperature: 0.1,
		MaxTokens:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, "You spent 42 EUR.", reply)

	assert.Equal(t, "deepseek-chat", captured.Model)
	assert.Equal(t, 100, captured.MaxTokens)
	assert.InDelta(t, 0.1, captured.Temperature, 1e-9)
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, RoleSystem, captured.Messages[0].Role)
	assert.Equal(t, "earlier question", captured.Messages[1].Content)
	assert.Equal(t, RoleAssistant, captured.Messages[2].Role)
	assert.Equal(t, Message{Role: RoleUser, Content: "how much?"}, captured.Messages[3])
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		status     int
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantStatus: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", wantStatus: http.StatusBadGateway},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "invalid json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newOpenAIClient(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)

			var statusErr *StatusError
			if tt.wantStatus != 0 {
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
				assert.Equal(t, ProviderDeepSeek, statusErr.Provider)
			} else {
				assert.False(t, errors.As(err, &statusErr))
			}
		})
	}
}
