package errors

import (
	"errors"
	"fmt"
	"testing"
)

type providerErr struct{ msg string }

func (e *providerErr) Error() string       { return "provider: " + e.msg }
func (e *providerErr) UserMessage() string { return e.msg }

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: errors.New("something went wrong"), expected: "Error: something went wrong"},
		{name: "wrapped error", err: fmt.Errorf("list habits: %w", errors.New("connection refused")), expected: "Error: list habits: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		expected string
	}{
		{name: "nil error", err: nil, fallback: "fallback", expected: ""},
		{name: "plain error uses fallback", err: errors.New("dial tcp: refused"), fallback: "Something went wrong", expected: "Something went wrong"},
		{name: "user facing error verbatim", err: &providerErr{msg: "Invalid credentials."}, fallback: "x", expected: "Invalid credentials."},
		{name: "wrapped user facing error", err: fmt.Errorf("create session: %w", &providerErr{msg: "Rate limit exceeded"}), fallback: "x", expected: "Rate limit exceeded"},
		{name: "empty user message uses fallback", err: &providerErr{}, fallback: "fallback", expected: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err, tt.fallback); got != tt.expected {
				t.Errorf("Message() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap("create habit", nil, "fallback") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	cause := &providerErr{msg: "Document already exists"}
	err := Wrap("create habit", cause, "fallback")
	if got := Message(err, "other"); got != "Document already exists" {
		t.Errorf("Message() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should stay reachable")
	}

	err = Wrap("create habit", errors.New("timeout"), "Something went wrong on the server!")
	if got := Message(err, "other"); got != "Something went wrong on the server!" {
		t.Errorf("Message() = %q", got)
	}
	if got := err.Error(); got != "create habit: timeout" {
		t.Errorf("Error() = %q", got)
	}
}
