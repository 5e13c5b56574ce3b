package vision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error is a provider error classified for retry handling.
//
// Adapters map raw SDK errors into this type so callers can distinguish
// transient failures (rate limits, server errors, network blips) from
// permanent ones (bad API key, exhausted quota) without inspecting
// provider-specific error strings.
type Error struct {
	// Code identifies the failure class:
	// "rate_limited", "server_error", "network_error", "timeout",
	// "invalid_api_key", "quota_exceeded", "api_error".
	Code string

	// Message is a human-readable description.
	Message string

	// Retryable reports whether retrying the request may succeed.
	Retryable bool

	// RetryAfter is the provider-suggested wait before retrying,
	// when the provider supplied one. Zero means no suggestion.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRetryable reports whether err is a transient provider failure.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr.Retryable
	}

	// Unclassified errors: fall back to common transient patterns.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "500", "502", "503"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// RetryAfterHint extracts a provider-suggested retry delay from err.
//
// OpenAI rate-limit errors often carry "try again in 558ms" in their
// message; when present that wait is honored in preference to
// exponential backoff. Returns zero and false when no hint exists.
func RetryAfterHint(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	var perr *Error
	if errors.As(err, &perr) && perr.RetryAfter > 0 {
		return perr.RetryAfter, true
	}

	return parseRetryHint(err.Error())
}

// parseRetryHint scans an error message for the "try again in Nms" /
// "try again in Ns" phrasing used by OpenAI rate-limit responses.
func parseRetryHint(msg string) (time.Duration, bool) {
	const marker = "try again in"
	idx := strings.Index(strings.ToLower(msg), marker)
	if idx < 0 {
		return 0, false
	}

	rest := strings.TrimSpace(msg[idx+len(marker):])
	// Take the leading number token.
	end := 0
	for end < len(rest) && (rest[end] >= '0' && rest[end] <= '9' || rest[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}

	value, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return 0, false
	}

	unit := strings.TrimSpace(rest[end:])
	switch {
	case strings.HasPrefix(unit, "ms"):
		return time.Duration(value * float64(time.Millisecond)), true
	case strings.HasPrefix(unit, "s"):
		return time.Duration(value * float64(time.Second)), true
	default:
		return 0, false
	}
}

// ClassifyError maps a raw provider error into *Error.
//
// Already-classified errors and context errors pass through unchanged.
// Everything else is bucketed by message inspection, mirroring the error
// surfaces of the OpenAI, Anthropic, and Gemini HTTP APIs.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
		}
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests"):
		retryAfter, _ := parseRetryHint(msg)
		return &Error{
			Code:       "rate_limited",
			Message:    msg,
			Retryable:  true,
			RetryAfter: retryAfter,
		}

	case strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "401") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "authentication"):
		return &Error{
			Code:      "invalid_api_key",
			Message:   msg,
			Retryable: false,
		}

	case strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "billing"):
		return &Error{
			Code:      "quota_exceeded",
			Message:   msg,
			Retryable: false,
		}

	case strings.Contains(lower, "500") ||
		strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "overloaded"):
		return &Error{
			Code:      "server_error",
			Message:   msg,
			Retryable: true,
		}

	case strings.Contains(lower, "connection") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "network"):
		return &Error{
			Code:      "network_error",
			Message:   msg,
			Retryable: true,
		}

	default:
		return &Error{
			Code:      "api_error",
			Message:   msg,
			Retryable: false,
		}
	}
}
