package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitual/internal/logger"
)

// UserFacing is implemented by errors that carry a message meant to be shown
// to the user as-is (provider errors, form validation errors).
type UserFacing interface {
	error
	UserMessage() string
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Message flattens err into the single string shown at the root of a form.
// The first user-facing error in the chain wins; anything else collapses to
// fallback. A nil error yields "".
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var uf UserFacing
	if stderrors.As(err, &uf) {
		if msg := uf.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// OpError is a failed user action together with the single message shown
// for it. The cause stays reachable through Unwrap.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) UserMessage() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }

// Wrap records the message Message(err, fallback) would produce for op.
func Wrap(op string, err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Message: Message(err, fallback), Err: err}
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
