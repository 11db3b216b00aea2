package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/langextract/backend/pkg/circuitbreaker"
	"github.com/langextract/backend/pkg/config"
	"github.com/langextract/backend/pkg/retry"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []ChatRequest
	chat  func(ctx context.Context, req ChatRequest) (string, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.chat(ctx, req)
}

func (f *fakeProvider) lastCall(t *testing.T) ChatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func testOptions() Options {
	return Options{
		Model:                "gemma3:4b",
		MaxTokens:            512,
		Timeout:              time.Second,
		ContextWindow:        4096,
		ContextWindowCeiling: 8192,
		HistoryThreshold:     15,
	}
}

func TestCompleteResolvesDefaults(t *testing.T) {
	p := &fakeProvider{chat: func(context.Context, ChatRequest) (string, error) { return `{"entities":[]}`, nil }}
	c := NewClient(p, testOptions())

	got, err := c.Complete(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "user", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, `{"entities":[]}`, got)

	call := p.lastCall(t)
	assert.Equal(t, "gemma3:4b", call.Model)
	assert.Equal(t, "sys", call.System)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "user"}}, call.Messages)
	assert.Equal(t, 512, call.MaxTokens)
	assert.Equal(t, 4096, call.ContextWindow)
	assert.InDelta(t, 0.2, call.Temperature, 1e-9)
}

func TestCompleteCleansHistoryAndWidensContext(t *testing.T) {
	p := &fakeProvider{chat: func(context.Context, ChatRequest) (string, error) { return "ok", nil }}
	c := NewClient(p, testOptions())

	history := []Message{
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleUser, Content: "   "},
		{Role: "tool", Content: "ignored"},
	}
	for i := 0; i < 14; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history = append(history, Message{Role: role, Content: "  turn  "})
	}

	_, err := c.Complete(context.Background(), Request{Model: "m", UserPrompt: "now", History: history})
	require.NoError(t, err)

	call := p.lastCall(t)
	require.Len(t, call.Messages, 15)
	assert.Equal(t, "turn", call.Messages[0].Content)
	assert.Equal(t, Message{Role: RoleUser, Content: "now"}, call.Messages[14])
	// 15 turns plus the system prompt crosses the threshold.
	assert.Equal(t, 8192, call.ContextWindow)
}

func TestAdjustContextWindow(t *testing.T) {
	tests := []struct {
		name                              string
		base, ceiling, threshold, messages int
		want                              int
	}{
		{name: "short conversation", base: 4096, ceiling: 8192, threshold: 15, messages: 15, want: 4096},
		{name: "long conversation", base: 4096, ceiling: 8192, threshold: 15, messages: 16, want: 8192},
		{name: "capped", base: 6000, ceiling: 8192, threshold: 15, messages: 40, want: 8192},
		{name: "never shrinks", base: 16384, ceiling: 8192, threshold: 15, messages: 40, want: 16384},
		{name: "unset base", base: 0, ceiling: 8192, threshold: 15, messages: 40, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustContextWindow(tt.base, tt.ceiling, tt.threshold, tt.messages))
		})
	}
}

func TestCompleteTimesOutWithinBound(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakeProvider{chat: func(ctx context.Context, _ ChatRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := NewClient(p, testOptions())

	timeout := 50 * time.Millisecond
	start := time.Now()
	_, err := c.Complete(context.Background(), Request{Model: "slow", UserPrompt: "x", Timeout: timeout})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTimeout)
	assert.NotErrorIs(t, err, ErrModelUnavailable)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "slow", te.Model)
	assert.Equal(t, timeout, te.After)
	assert.Contains(t, err.Error(), "timed out after 50ms")
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestCompleteWrapsProviderErrors(t *testing.T) {
	boom := errors.New("connection refused")
	p := &fakeProvider{chat: func(context.Context, ChatRequest) (string, error) { return "", boom }}
	c := NewClient(p, testOptions())

	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestCompleteDoesNotRetryByDefault(t *testing.T) {
	calls := 0
	p := &fakeProvider{chat: func(context.Context, ChatRequest) (string, error) {
		calls++
		return "", errors.New("down")
	}}
	c := NewClient(p, testOptions())

	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 1, calls)
}

func TestCompleteRetriesUnavailableWhenEnabled(t *testing.T) {
	calls := 0
	p := &fakeProvider{chat: func(context.Context, ChatRequest) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("503")
		}
		return "ok", nil
	}}
	opts := testOptions()
	opts.Retry = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	c := NewClient(p, opts)

	got, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestCompleteNeverRetriesTimeouts(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	p := &fakeProvider{chat: func(ctx context.Context, _ ChatRequest) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-ctx.Done()
		return "", ctx.Err()
	}}
	opts := testOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.Retry = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond}
	c := NewClient(p, opts)

	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.ErrorIs(t, err, ErrModelTimeout)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestCompleteReportsOpenBreakerAsUnavailable(t *testing.T) {
	p := &fakeProvider{chat: func(context.Context, ChatRequest) (string, error) { return "", errors.New("down") }}
	opts := testOptions()
	opts.BreakerEnabled = true
	opts.Breaker = circuitbreaker.Config{FailureThreshold: 1, OpenTimeout: time.Hour}
	c := NewClient(p, opts)

	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.ErrorIs(t, err, ErrModelUnavailable)

	_, err = c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Len(t, p.calls, 1)
}

func TestCompleteCallsStayIndependentByDefault(t *testing.T) {
	var mu sync.Mutex
	healthy := false
	p := &fakeProvider{chat: func(ctx context.Context, _ ChatRequest) (string, error) {
		mu.Lock()
		ok := healthy
		mu.Unlock()
		if ok {
			return "{}", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}}
	opts := OptionsFromConfig(config.LLMConfig{Model: "m", MaxTokens: 64, TimeoutSec: 1, MaxAttempts: 1})
	opts.Timeout = 10 * time.Millisecond
	c := NewClient(p, opts)

	for i := 0; i < 6; i++ {
		_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
		require.ErrorIs(t, err, ErrModelTimeout)
	}

	mu.Lock()
	healthy = true
	mu.Unlock()

	got, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.calls, 7)
}

func TestOptionsFromConfigBreaker(t *testing.T) {
	opts := OptionsFromConfig(config.LLMConfig{
		Breaker: config.BreakerConfig{Enabled: true, FailureThreshold: 3, OpenTimeoutSec: 10},
	})
	assert.True(t, opts.BreakerEnabled)
	assert.Equal(t, uint32(3), opts.Breaker.FailureThreshold)
	assert.Equal(t, 10*time.Second, opts.Breaker.OpenTimeout)

	assert.False(t, OptionsFromConfig(config.LLMConfig{}).BreakerEnabled)
}

func TestCompleteHonoursCallerCancellation(t *testing.T) {
	p := &fakeProvider{chat: func(ctx context.Context, _ ChatRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := NewClient(p, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, Request{UserPrompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCleanHistory(t *testing.T) {
	got := CleanHistory([]Message{
		{Role: RoleUser, Content: " hi "},
		{Role: RoleAssistant, Content: ""},
		{Role: RoleSystem, Content: "x"},
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}, got)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(&TimeoutError{Model: "m", After: time.Second}))
	assert.Equal(t, "unavailable", outcome(ErrModelUnavailable))
	assert.Equal(t, "canceled", outcome(context.Canceled))
	assert.Equal(t, "error", outcome(errors.New("x")))
}
