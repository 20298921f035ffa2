// Package llm provides the gateway to remote text-generation services.
// It supports OpenAI-compatible chat completion APIs (DeepSeek, OpenAI) and
// Anthropic, and wraps them with a daily quota, bounded retry with backoff,
// and hard per-call deadlines.
package llm
