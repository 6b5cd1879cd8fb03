package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeOutOfRange, "sector %d", 16)

	if err.Code != ErrCodeOutOfRange {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeOutOfRange)
	}
	if err.Message != "sector 16" {
		t.Errorf("Message = %v, want %v", err.Message, "sector 16")
	}

	expected := "OUT_OF_RANGE: sector 16"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeNetwork, cause, "push event")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if want := "NETWORK_ERROR: push event: connection reset"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidConfiguration, "r"), ErrCodeInvalidConfiguration, true},
		{"non-matching code", New(ErrCodeOutOfRange, "i"), ErrCodeInvalidArgument, false},
		{"wrapped error", Wrap(ErrCodeNetwork, New(ErrCodeTimeout, "inner"), "outer"), ErrCodeNetwork, true},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeTaskNotFound, "x"), ErrCodeTaskNotFound},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidInput, "title cannot be empty")); got != "title cannot be empty" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "boom" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", New(ErrCodeNetwork, "x"), true},
		{"timeout", New(ErrCodeTimeout, "x"), true},
		{"rate limited code", New(ErrCodeRateLimited, "x"), true},
		{"rate limited type", &RateLimitedError{RetryAfter: 3}, true},
		{"unauthorized", New(ErrCodeUnauthorized, "x"), false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 30}
	if err.Error() != "rate limited: retry after 30 seconds" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Code() != ErrCodeRateLimited {
		t.Errorf("Code() = %v", err.Code())
	}
	if (&RateLimitedError{}).Error() != "rate limited" {
		t.Error("zero RetryAfter should produce plain message")
	}
}
