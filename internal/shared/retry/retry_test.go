package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestPolicy_Do(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		policy       Policy
		failures     int
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "success on first attempt",
			policy:       Constant(3, time.Millisecond),
			failures:     0,
			wantErr:      nil,
			wantAttempts: 1,
		},
		{
			name:         "success after retries",
			policy:       Constant(3, time.Millisecond),
			failures:     2,
			wantErr:      nil,
			wantAttempts: 3,
		},
		{
			name:         "attempts exhausted",
			policy:       Constant(3, time.Millisecond),
			failures:     10,
			wantErr:      errBoom,
			wantAttempts: 3,
		},
		{
			name:         "zero value runs once",
			policy:       Policy{},
			failures:     10,
			wantErr:      errBoom,
			wantAttempts: 1,
		},
		{
			name:         "exponential policy retries",
			policy:       Exponential(4, time.Millisecond, 4*time.Millisecond),
			failures:     3,
			wantErr:      nil,
			wantAttempts: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			err := tt.policy.Do(context.Background(), "test", func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return errBoom
				}
				return nil
			})

			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestPolicy_Do_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := Constant(5, time.Millisecond).Do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return Permanent(errBoom)
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, attempts)
}

func TestPolicy_Do_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Constant(100, 10*time.Millisecond).Do(ctx, "test", func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errBoom
	})

	require.Error(t, err)
	assert.Less(t, attempts, 100)
}
