package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/langextract/backend/pkg/config"
)

// ChatRequest is what a provider receives after the client has resolved
// defaults. Messages holds the cleaned history followed by the current turn.
type ChatRequest struct {
	Model         string
	System        string
	Messages      []Message
	Temperature   float64
	MaxTokens     int
	ContextWindow int
}

// Provider is a chat-completion backend. Implementations must return promptly
// once ctx is cancelled.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Pinger is implemented by providers that can cheaply check reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaProvider(cfg.Host, &http.Client{})
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
