package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

func fastPolicy(maxAttempts uint) Policy {
	return Policy{MaxAttempts: maxAttempts, InitialDelay: time.Millisecond}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	observed := 0
	result, err := Do(context.Background(), fastPolicy(3),
		func(_ context.Context) (int, error) { return 42, nil },
		func(error, uint) { observed++ },
		Always,
	)

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Zero(t, observed)
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		failures    int
		maxAttempts uint
	}{
		{name: "one failure then success", failures: 1, maxAttempts: 3},
		{name: "two failures then success", failures: 2, maxAttempts: 3},
		{name: "failures exactly one below cap", failures: 4, maxAttempts: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			observed := 0
			result, err := Do(context.Background(), fastPolicy(tt.maxAttempts),
				func(_ context.Context) (string, error) {
					calls++
					if calls <= tt.failures {
						return "", errTransient
					}
					return "ok", nil
				},
				func(err error, attempt uint) {
					observed++
					assert.ErrorIs(t, err, errTransient)
					assert.Equal(t, uint(observed), attempt)
				},
				Always,
			)

			require.NoError(t, err)
			assert.Equal(t, "ok", result)
			assert.Equal(t, tt.failures+1, calls)
			assert.Equal(t, tt.failures, observed)
		})
	}
}

func TestDo_ExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	const maxAttempts = 4

	calls := 0
	observed := 0
	_, err := Do(context.Background(), fastPolicy(maxAttempts),
		func(_ context.Context) (int, error) {
			calls++
			return 0, errTransient
		},
		func(error, uint) { observed++ },
		Always,
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, maxAttempts, calls)
	assert.Equal(t, maxAttempts, observed)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent failure")

	calls := 0
	observed := 0
	_, err := Do(context.Background(), fastPolicy(5),
		func(_ context.Context) (int, error) {
			calls++
			return 0, permanent
		},
		func(error, uint) { observed++ },
		func(error) bool { return false },
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, observed)
}

func TestDo_PredicateDistinguishesErrors(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent failure")

	calls := 0
	_, err := Do(context.Background(), fastPolicy(5),
		func(_ context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, errTransient
			}
			return 0, permanent
		},
		nil,
		func(err error) bool { return errors.Is(err, errTransient) },
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancellationAbandonsWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 10, InitialDelay: time.Minute},
		func(_ context.Context) (int, error) {
			calls++
			cancel()
			return 0, errTransient
		},
		nil,
		Always,
	)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroPolicyUsesDefaults(t *testing.T) {
	t.Parallel()

	result, err := Do(context.Background(), Policy{},
		func(_ context.Context) (bool, error) { return true, nil },
		nil,
		Always,
	)

	require.NoError(t, err)
	assert.True(t, result)
}
