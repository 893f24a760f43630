package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = eris.New("boom")

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(cfg)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func failNTimes(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := cb.Execute(context.Background(), func(ctx context.Context) error {
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	failNTimes(t, cb, 2)
	assert.Equal(t, CircuitClosed, cb.State())

	failNTimes(t, cb, 1)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_OpenRejectsWithoutCalling(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	failNTimes(t, cb, 1)

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	failNTimes(t, cb, 2)
	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	}))

	streak, state := cb.Counters()
	assert.Zero(t, streak)
	assert.Equal(t, CircuitClosed, state)

	// The streak starts over, so two more failures stay closed.
	failNTimes(t, cb, 2)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     30 * time.Second,
	})
	failNTimes(t, cb, 1)

	*clock = clock.Add(29 * time.Second)
	assert.Equal(t, CircuitOpen, cb.State())

	*clock = clock.Add(time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
	})
	failNTimes(t, cb, 1)
	*clock = clock.Add(time.Minute)

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
	})
	failNTimes(t, cb, 1)
	*clock = clock.Add(time.Minute)

	failNTimes(t, cb, 1)
	assert.Equal(t, CircuitOpen, cb.State())

	// Still open until another full reset timeout passes.
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_MultipleProbesRequired(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold:  1,
		ResetTimeout:      time.Minute,
		HalfOpenMaxProbes: 2,
	})
	failNTimes(t, cb, 1)
	*clock = clock.Add(time.Minute)

	ok := func(ctx context.Context) error { return nil }

	require.NoError(t, cb.Execute(context.Background(), ok))
	_, state := cb.Counters()
	assert.Equal(t, CircuitHalfOpen, state)

	require.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ShouldTripFiltersErrors(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})

	// A permanent error passes through without tripping the breaker.
	permanent := eris.New("bad request")
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, CircuitClosed, cb.State())

	err = cb.Execute(context.Background(), func(ctx context.Context) error {
		return NewTransientError(eris.New("upstream down"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	type change struct{ from, to CircuitState }
	var changes []change

	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			changes = append(changes, change{from, to})
		},
	})

	failNTimes(t, cb, 1)
	*clock = clock.Add(time.Minute)
	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	}))

	assert.Equal(t, []change{
		{CircuitClosed, CircuitOpen},
		{CircuitOpen, CircuitHalfOpen},
		{CircuitHalfOpen, CircuitClosed},
	}, changes)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	failNTimes(t, cb, 1)
	require.Equal(t, CircuitOpen, cb.State())

	cb.Reset()

	assert.Equal(t, CircuitClosed, cb.State())
	streak, _ := cb.Counters()
	assert.Zero(t, streak)
}

func TestExecuteVal(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	val, err := ExecuteVal(context.Background(), cb, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, val)

	failNTimes(t, cb, 1)

	val, err = ExecuteVal(context.Background(), cb, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, val)
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(42).String())
}

func TestServiceBreakers(t *testing.T) {
	sb := NewServiceBreakers(CircuitBreakerConfig{FailureThreshold: 1})

	notion := sb.Get("notion")
	assert.Same(t, notion, sb.Get("notion"))
	assert.NotSame(t, notion, sb.Get("salesforce"))

	failNTimes(t, notion, 1)

	states := sb.States()
	assert.Equal(t, CircuitOpen, states["notion"])
	assert.Equal(t, CircuitClosed, states["salesforce"])
}
