// Package ai defines the text-generation provider boundary and its HTTP
// implementations.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrGenerationFailed indicates the underlying language model call failed.
// It is fatal to the enclosing request; no partial or cached answer is
// substituted.
var ErrGenerationFailed = errors.New("ai: generation failed")

// ChatMessage represents a message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// GenerateRequest represents a request to generate a response.
type GenerateRequest struct {
	Messages  []ChatMessage `json:"messages"`
	Model     string        `json:"model,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse represents a provider's response.
type GenerateResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage,omitempty"`
}

// Provider defines the interface for generation providers.
type Provider interface {
	Name() string
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// New constructs a provider by name. Supported: "anthropic", "openai".
func New(name, apiKey, model string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(apiKey, model), nil
	case "openai":
		return NewOpenAI(apiKey, model), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", name)
	}
}
