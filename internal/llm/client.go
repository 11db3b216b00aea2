package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/langextract/backend/internal/metrics"
	"github.com/langextract/backend/pkg/circuitbreaker"
	"github.com/langextract/backend/pkg/config"
	"github.com/langextract/backend/pkg/logger"
	"github.com/langextract/backend/pkg/retry"
)

// Options configure a Client. The per-model circuit breaker tuned by Breaker
// only runs when BreakerEnabled is set; otherwise every call reaches the provider.
type Options struct {
	Model                string
	MaxTokens            int
	Timeout              time.Duration
	ContextWindow        int
	ContextWindowCeiling int
	HistoryThreshold     int
	Retry                retry.Config
	BreakerEnabled       bool
	Breaker              circuitbreaker.Config
}

func OptionsFromConfig(cfg config.LLMConfig) Options {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.MaxAttempts

	return Options{
		Model:                cfg.Model,
		MaxTokens:            cfg.MaxTokens,
		Timeout:              cfg.Timeout(),
		ContextWindow:        cfg.ContextWindow,
		ContextWindowCeiling: cfg.ContextWindowCeiling,
		HistoryThreshold:     cfg.HistoryThreshold,
		Retry:                retryCfg,
		BreakerEnabled:       cfg.Breaker.Enabled,
		Breaker: circuitbreaker.Config{
			FailureThreshold: uint32(max(cfg.Breaker.FailureThreshold, 0)),
			OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		},
	}
}

// Client is the production Gateway. Each call runs the provider on its own
// goroutine and abandons it when the timeout fires.
type Client struct {
	provider Provider
	opts     Options
	breakers *circuitbreaker.Registry
}

func NewClient(provider Provider, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.HistoryThreshold <= 0 {
		opts.HistoryThreshold = 15
	}
	if len(opts.Retry.RetryableErrors) == 0 {
		opts.Retry.RetryableErrors = []error{ErrModelUnavailable}
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger.GetLogger()
	}

	breakerCfg := opts.Breaker
	breakerCfg.Disabled = !opts.BreakerEnabled
	breakerCfg.IsFailure = func(err error) bool {
		return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout)
	}
	if breakerCfg.Logger == nil {
		breakerCfg.Logger = logger.GetLogger()
	}

	logger.Info("Model gateway initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", opts.Model),
		zap.Duration("timeout", opts.Timeout),
		zap.Int("max_attempts", opts.Retry.MaxAttempts),
		zap.Bool("breaker", opts.BreakerEnabled),
	)

	return &Client{
		provider: provider,
		opts:     opts,
		breakers: circuitbreaker.NewRegistry(breakerCfg),
	}
}

func (c *Client) ProviderName() string {
	return c.provider.Name()
}

func (c *Client) DefaultModel() string {
	return c.opts.Model
}

// Ping checks provider reachability. Providers without a cheap health check
// are assumed reachable.
func (c *Client) Ping(ctx context.Context) error {
	p, ok := c.provider.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return nil
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	chat, timeout := c.resolve(req)

	retryCfg := c.opts.Retry
	retryCfg.OnRetry = func(attempt int, err error) {
		metrics.ModelRetries.WithLabelValues(chat.Model).Inc()
	}

	start := time.Now()
	var content string
	err := c.breakers.Get(chat.Model).Execute(ctx, func(ctx context.Context) error {
		var err error
		content, err = retry.DoWithResult(ctx, retryCfg, func(ctx context.Context) (string, error) {
			return c.callWithTimeout(ctx, chat, timeout)
		})
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: model %q: %w", ErrModelUnavailable, chat.Model, err)
	}
	elapsed := time.Since(start)

	metrics.ModelCallDuration.WithLabelValues(chat.Model).Observe(elapsed.Seconds())
	metrics.ModelCalls.WithLabelValues(chat.Model, outcome(err)).Inc()

	if err != nil {
		logger.Warn("Model call failed",
			zap.String("model", chat.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}

	logger.Debug("Model call completed",
		zap.String("model", chat.Model),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_length", len(content)),
	)
	return content, nil
}

func (c *Client) resolve(req Request) (ChatRequest, time.Duration) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	window := req.ContextWindow
	if window <= 0 {
		window = c.opts.ContextWindow
	}

	messages := append(CleanHistory(req.History), Message{Role: RoleUser, Content: req.UserPrompt})

	// The system prompt counts toward the conversation length.
	adjusted := AdjustContextWindow(window, c.opts.ContextWindowCeiling, c.opts.HistoryThreshold, len(messages)+1)
	if adjusted != window {
		logger.Debug("Adjusted context window for long conversation",
			zap.String("model", model),
			zap.Int("messages", len(messages)+1),
			zap.Int("context_window", adjusted),
		)
	}

	return ChatRequest{
		Model:         model,
		System:        req.SystemPrompt,
		Messages:      messages,
		Temperature:   req.Temperature,
		MaxTokens:     maxTokens,
		ContextWindow: adjusted,
	}, timeout
}

type reply struct {
	content string
	err     error
}

func (c *Client) callWithTimeout(ctx context.Context, req ChatRequest, timeout time.Duration) (string, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan reply, 1)
	go func() {
		content, err := c.provider.Chat(callCtx, req)
		done <- reply{content: content, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("%w: model %q: %w", ErrModelUnavailable, req.Model, r.err)
		}
		return r.content, nil
	case <-timer.C:
		return "", &TimeoutError{Model: req.Model, After: timeout}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrModelTimeout):
		return "timeout"
	case errors.Is(err, ErrModelUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
