package engine

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetryClass
	}{
		{"nil", nil, RetryClassNonRetryable},
		{"rate limit", errors.New("status 429: too many requests"), RetryClassRetryable},
		{"server", errors.New("503 service unavailable"), RetryClassRetryable},
		{"network", errors.New("dial tcp: connection refused"), RetryClassRetryable},
		{"deadline", errors.New("context deadline exceeded"), RetryClassMaybe},
		{"auth", errors.New("API key not valid. Please pass a valid API key."), RetryClassNonRetryable},
		{"unknown", errors.New("something odd"), RetryClassNonRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyLLMError(tt.err))
		})
	}
}

func TestClassifyLLMError_KeepsExistingClass(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &EngineError{Err: errors.New("x"), Class: RetryClassMaybe})
	assert.Equal(t, RetryClassMaybe, ClassifyLLMError(wrapped))
}

func TestWrapLLMError(t *testing.T) {
	assert.Nil(t, WrapLLMError(nil, 0, ""))

	base := errors.New("error, status code: 429, message: slow down")
	err := WrapLLMError(base, http.StatusTooManyRequests, "30")

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.True(t, engineErr.IsRateLimit)
	assert.False(t, engineErr.IsAuth)
	assert.Equal(t, "30", engineErr.RetryAfter)
	assert.Equal(t, RetryClassRetryable, engineErr.Class)
	assert.ErrorIs(t, err, base)
}

func TestExtractErrorMetadata(t *testing.T) {
	status, retryAfter := ExtractErrorMetadata(errors.New("error, status code: 429, Retry-After: 12 seconds"))
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "12", retryAfter)

	status, retryAfter = ExtractErrorMetadata(errors.New("401 unauthorized"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Empty(t, retryAfter)

	status, _ = ExtractErrorMetadata(nil)
	assert.Zero(t, status)
}
