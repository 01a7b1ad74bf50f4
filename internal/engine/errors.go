// Package engine holds the provider-agnostic chat types and the error
// classification shared by every LLM provider.
package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RetryClass indicates whether an error is worth retrying by the user.
// Nothing retries automatically.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"
	RetryClassMaybe        RetryClass = "maybe"
	RetryClassNonRetryable RetryClass = "non_retryable"
)

// EngineError wraps provider errors with classification metadata.
type EngineError struct {
	Err         error
	Class       RetryClass
	HTTPStatus  int    // HTTP status code if applicable
	RetryAfter  string // Retry-After value if present
	IsRateLimit bool
	IsAuth      bool
	IsQuota     bool
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("engine error: %s", e.Class)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// ClassifyLLMError classifies an error from an LLM provider call.
func ClassifyLLMError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Class
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case containsAny(errStr, "429", "rate limit", "too many requests"):
		return RetryClassRetryable
	case containsAny(errStr, "500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout"):
		return RetryClassRetryable
	case containsAny(errStr, "timeout", "connection reset", "connection refused",
		"no such host", "network", "dns", "temporary failure"):
		return RetryClassRetryable
	case containsAny(errStr, "context deadline exceeded", "deadline exceeded"):
		return RetryClassMaybe
	case containsAny(errStr, "context length", "token limit", "maximum context length"):
		return RetryClassMaybe
	case containsAny(errStr, "401", "403", "unauthorized", "forbidden",
		"invalid api key", "api key not valid", "authentication failed"):
		return RetryClassNonRetryable
	case containsAny(errStr, "400", "bad request", "invalid request", "malformed"):
		return RetryClassNonRetryable
	case containsAny(errStr, "402", "quota", "billing", "payment required"):
		return RetryClassNonRetryable
	case containsAny(errStr, "content filter", "safety", "guardrail", "policy violation"):
		return RetryClassNonRetryable
	}

	return RetryClassNonRetryable
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// WrapLLMError wraps an LLM provider error with classification metadata.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}

	return &EngineError{
		Err:         err,
		Class:       ClassifyLLMError(err),
		HTTPStatus:  httpStatus,
		RetryAfter:  retryAfter,
		IsRateLimit: httpStatus == http.StatusTooManyRequests,
		IsAuth:      httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden,
		IsQuota:     httpStatus == http.StatusPaymentRequired,
	}
}

// ExtractErrorMetadata pulls an HTTP status code and Retry-After value out of
// an SDK error message. SDK error types differ per provider, so the message is
// the only common ground.
func ExtractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	errStr := err.Error()
	var httpStatus int

	statuses := []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusBadRequest,
		http.StatusPaymentRequired,
	}
	for _, code := range statuses {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			httpStatus = code
			break
		}
	}

	var retryAfter string
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			remaining := strings.TrimLeft(errStr[idx+len(marker):], ": ")
			if parts := strings.Fields(remaining); len(parts) > 0 {
				retryAfter = parts[0]
			}
			break
		}
	}

	return httpStatus, retryAfter
}
