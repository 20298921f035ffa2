package llm

import (
	"fmt"
	"strings"
)

// Supported providers.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient creates a raw provider client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderDeepSeek, "":
		cfg.Provider = ProviderDeepSeek
		return newOpenAIClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// DefaultDailyLimit returns the vendor's free-tier daily request cap.
func DefaultDailyLimit(provider string) int {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return 10000
	case ProviderAnthropic:
		return 1500
	default:
		return 14400
	}
}
