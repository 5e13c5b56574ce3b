package vision

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseRetryHint(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
		ok   bool
	}{
		{"Rate limit reached. Please try again in 558ms.", 558 * time.Millisecond, true},
		{"Please try again in 2s", 2 * time.Second, true},
		{"please try again in 1.5s.", 1500 * time.Millisecond, true},
		{"Try again in 20ms", 20 * time.Millisecond, true},
		{"rate limit exceeded", 0, false},
		{"try again in soon", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseRetryHint(tt.msg)
		if ok != tt.ok {
			t.Errorf("parseRetryHint(%q): expected ok=%v, got %v", tt.msg, tt.ok, ok)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRetryHint(%q): expected %s, got %s", tt.msg, tt.want, got)
		}
	}
}

func TestRetryAfterHintPrefersStructuredValue(t *testing.T) {
	err := &Error{Code: "rate_limited", Message: "try again in 10s", Retryable: true, RetryAfter: time.Second}
	hint, ok := RetryAfterHint(err)
	if !ok || hint != time.Second {
		t.Errorf("expected structured 1s hint, got %s (ok=%v)", hint, ok)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"classified retryable", &Error{Code: "rate_limited", Retryable: true}, true},
		{"classified permanent", &Error{Code: "invalid_api_key", Retryable: false}, false},
		{"wrapped classified", fmt.Errorf("call failed: %w", &Error{Code: "server_error", Retryable: true}), true},
		{"unclassified timeout", errors.New("dial tcp: i/o timeout"), true},
		{"unclassified 503", errors.New("HTTP 503 service unavailable"), true},
		{"unclassified permanent", errors.New("model not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{"rate limit", errors.New("429 Too Many Requests"), "rate_limited", true},
		{"rate limit phrase", errors.New("Rate limit reached, try again in 20ms"), "rate_limited", true},
		{"invalid key", errors.New("Incorrect API key provided"), "invalid_api_key", false},
		{"quota", errors.New("You exceeded your current quota"), "quota_exceeded", false},
		{"server error", errors.New("500 Internal Server Error"), "server_error", true},
		{"network", errors.New("connection refused"), "network_error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			var perr *Error
			if !errors.As(classified, &perr) {
				t.Fatalf("expected *Error, got %T", classified)
			}
			if perr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, perr.Code)
			}
			if perr.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, perr.Retryable)
			}
		})
	}
}

func TestClassifyErrorPassThrough(t *testing.T) {
	if got := ClassifyError(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := ClassifyError(context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("context.Canceled should pass through, got %v", got)
	}

	classified := ClassifyError(context.DeadlineExceeded)
	var perr *Error
	if !errors.As(classified, &perr) || perr.Code != "timeout" {
		t.Errorf("deadline should classify as timeout, got %v", classified)
	}

	original := &Error{Code: "rate_limited", Retryable: true}
	if got := ClassifyError(original); got != error(original) {
		t.Errorf("already-classified errors should pass through unchanged")
	}
}

func TestClassifyErrorCapturesRetryHint(t *testing.T) {
	classified := ClassifyError(errors.New("Rate limit reached. Please try again in 558ms."))
	var perr *Error
	if !errors.As(classified, &perr) {
		t.Fatalf("expected *Error, got %T", classified)
	}
	if perr.RetryAfter != 558*time.Millisecond {
		t.Errorf("expected 558ms retry hint, got %s", perr.RetryAfter)
	}
}

func TestImageQueryEncodings(t *testing.T) {
	q := ImageQuery{Image: []byte{0xff, 0xd8, 0xff}}

	if q.ContentType() != "image/jpeg" {
		t.Errorf("expected default image/jpeg, got %s", q.ContentType())
	}
	wantB64 := "/9j/"
	if q.Base64() != wantB64 {
		t.Errorf("expected base64 %q, got %q", wantB64, q.Base64())
	}
	wantURL := "data:image/jpeg;base64,/9j/"
	if q.DataURL() != wantURL {
		t.Errorf("expected data URL %q, got %q", wantURL, q.DataURL())
	}

	q.MIMEType = "image/png"
	if q.ContentType() != "image/png" {
		t.Errorf("expected image/png, got %s", q.ContentType())
	}
}
