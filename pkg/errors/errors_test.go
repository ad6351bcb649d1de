package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", New(ErrCodeInvalidKind, "unknown entity kind: %q", "widget"), `INVALID_KIND: unknown entity kind: "widget"`},
		{"wrapped", Wrap(ErrCodeNetwork, errors.New("connection refused"), "GET /sample/s1"), "NETWORK_ERROR: GET /sample/s1: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := Wrap(ErrCodeTimeout, cause, "fetch graph")

	if errors.Unwrap(err) != cause || !errors.Is(err, cause) {
		t.Errorf("Wrap() should unwrap to its cause, got %v", errors.Unwrap(err))
	}
	if err.Message != "fetch graph" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestIsAndGetCode(t *testing.T) {
	missing := New(ErrCodeNotFound, "no material node found with id m9")

	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"direct", missing, ErrCodeNotFound},
		{"outer code wins", Wrap(ErrCodeInvalidRecord, missing, "sample s1"), ErrCodeInvalidRecord},
		{"through fmt wrapping", fmt.Errorf("refresh materials: %w", missing), ErrCodeNotFound},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%q) = false", tt.code)
			}
			if Is(tt.err, ErrCodeInternal) {
				t.Error("Is(INTERNAL_ERROR) = true")
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(Wrap(ErrCodeNetwork, errors.New("reset"), "dashboard unreachable")); got != "dashboard unreachable" {
		t.Errorf("UserMessage(*Error) = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", New(ErrCodeNetwork, "down"), true},
		{"timeout", Wrap(ErrCodeTimeout, errors.New("deadline"), "fetch"), true},
		{"not found", New(ErrCodeNotFound, "missing"), false},
		{"malformed record", New(ErrCodeInvalidFormat, "bad created_at"), false},
		{"plain", errors.New("plain"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput, ErrCodeInvalidKind, ErrCodeInvalidFormat,
		ErrCodeInvalidRecord, ErrCodeInvalidConfig, ErrCodeNotFound,
		ErrCodeNetwork, ErrCodeTimeout, ErrCodeInternal, ErrCodeUnsupported,
	}
	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
