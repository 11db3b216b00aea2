// Package llm is the model gateway: one synchronous chat completion per call,
// bounded by a hard wall-clock timeout.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrModelTimeout     = errors.New("model timeout")
	ErrModelUnavailable = errors.New("model unavailable")
)

// TimeoutError reports a call abandoned after its deadline. It matches
// ErrModelTimeout under errors.Is.
type TimeoutError struct {
	Model string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model %q timed out after %s", e.Model, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrModelTimeout
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one gateway call. Zero-valued Model, MaxTokens, Timeout and
// ContextWindow fall back to the client defaults.
type Request struct {
	Model         string
	SystemPrompt  string
	History       []Message
	UserPrompt    string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	ContextWindow int
}

type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// GatewayFunc adapts a plain function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req Request) (string, error)

func (f GatewayFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// CleanHistory keeps user and assistant turns with non-blank content,
// trimmed, in their original order.
func CleanHistory(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		out = append(out, Message{Role: m.Role, Content: content})
	}
	return out
}

// AdjustContextWindow widens the context window for long conversations.
// Above threshold messages the window doubles, capped at ceiling, and never
// shrinks below base.
func AdjustContextWindow(base, ceiling, threshold, messages int) int {
	if base <= 0 || messages <= threshold {
		return base
	}
	widened := 2 * base
	if ceiling > 0 && widened > ceiling {
		widened = ceiling
	}
	if widened < base {
		return base
	}
	return widened
}
