package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrap_Format(t *testing.T) {
	err := Wrap(ErrInvalidData, "Codec", "Decode", "envelope unmarshal")
	assert.EqualError(t, err, "Codec.Decode: envelope unmarshal failed: invalid data format")
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class ErrorClass
	}{
		{"transient", WrapTransient(ErrConnectionLost, "Client", "Publish", "publish"), ErrorTransient},
		{"invalid", WrapInvalid(ErrInvalidConfig, "FieldRouter", "New", "validate"), ErrorInvalid},
		{"fatal", WrapFatal(ErrMissingConfig, "Processor", "Start", "nats client"), ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *ClassifiedError
			require.ErrorAs(t, tt.err, &ce)
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, tt.class, Classify(tt.err))
		})
	}

	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
}

func TestExplicitClassWinsOverSentinel(t *testing.T) {
	// ErrInvalidConfig is fatal by sentinel, but the explicit class decides.
	err := WrapInvalid(ErrInvalidConfig, "FieldRouter", "New", "validate")
	assert.True(t, IsInvalid(err))
	assert.False(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"connection lost", ErrConnectionLost, true},
		{"circuit open", ErrCircuitOpen, true},
		{"deadline", context.DeadlineExceeded, true},
		{"message pattern", fmt.Errorf("network unreachable"), true},
		{"invalid data", ErrInvalidData, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestClassify_UnknownDefaultsToTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
	assert.Equal(t, ErrorFatal, Classify(ErrMissingConfig))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
}

func TestRetryConfig_Retry(t *testing.T) {
	rc := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	t.Run("transient is retried", func(t *testing.T) {
		calls := 0
		err := rc.Retry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return ErrConnectionLost
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("invalid stops immediately", func(t *testing.T) {
		calls := 0
		err := rc.Retry(context.Background(), func() error {
			calls++
			return WrapInvalid(ErrInvalidData, "Codec", "Encode", "marshal")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, IsInvalid(err))
	})
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	rc := DefaultRetryConfig()
	assert.True(t, rc.ShouldRetry(ErrConnectionTimeout, 0))
	assert.False(t, rc.ShouldRetry(ErrConnectionTimeout, rc.MaxRetries))
	assert.False(t, rc.ShouldRetry(ErrInvalidData, 0))
	assert.False(t, rc.ShouldRetry(nil, 0))
}
