package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("model down")

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("gemma3:4b", Config{FailureThreshold: 2, OpenTimeout: time.Hour})

	require.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	require.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	clock := time.Now()
	var transitions []State
	cb := New("m", Config{
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		OnStateChange:    func(_ string, _, to State) { transitions = append(transitions, to) },
	})
	cb.now = func() time.Time { return clock }

	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, StateOpen, cb.State())

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	cb := New("m", Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return errors.Is(err, errDown) },
	})
	other := errors.New("invalid request")

	require.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return other }), other)
	assert.Equal(t, StateClosed, cb.State())
}

func TestDisabledBreakerPassesThrough(t *testing.T) {
	cb := New("m", Config{Disabled: true, FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestRegistryIsolatesModels(t *testing.T) {
	reg := NewRegistry(Config{FailureThreshold: 1, OpenTimeout: time.Hour})

	require.Error(t, reg.Get("a").Execute(context.Background(), fail))
	assert.Equal(t, StateOpen, reg.Get("a").State())
	assert.Equal(t, StateClosed, reg.Get("b").State())
	assert.Same(t, reg.Get("a"), reg.Get("a"))
}
