package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type OllamaProvider struct {
	client *api.Client
}

// NewOllamaProvider talks to the Ollama chat API at host. An empty host
// defers to OLLAMA_HOST.
func NewOllamaProvider(host string, httpClient *http.Client) (*OllamaProvider, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return &OllamaProvider{client: client}, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &OllamaProvider{client: api.NewClient(u, httpClient)}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	messages = append(messages, api.Message{Role: string(RoleSystem), Content: req.System})
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	options := map[string]any{
		"temperature": req.Temperature,
		"num_predict": req.MaxTokens,
	}
	if req.ContextWindow > 0 {
		options["num_ctx"] = req.ContextWindow
	}

	stream := false
	var content strings.Builder
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}

	return content.String(), nil
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Heartbeat(ctx)
}
