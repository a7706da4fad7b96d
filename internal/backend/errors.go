package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types reported by the backend. Only the ones the app reacts to are named.
const (
	TypeUserAlreadyExists      = "user_already_exists"
	TypeUserInvalidCredentials = "user_invalid_credentials"
	TypeUnauthorized           = "general_unauthorized_scope"
	TypeDocumentNotFound       = "document_not_found"
	TypeDocumentAlreadyExists  = "document_already_exists"
	TypeSessionAlreadyExists   = "user_session_already_exists"
	TypeArgumentInvalid        = "general_argument_invalid"
)

// Error is an error reported by the backend. Message is meant for users and
// is surfaced verbatim.
type Error struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Code, e.Type)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// UserMessage returns the provider's message unchanged.
func (e *Error) UserMessage() string {
	return e.Message
}

// NewError builds an Error.
func NewError(code int, typ, message string) *Error {
	return &Error{Code: code, Type: typ, Message: message}
}

func code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool { return code(err) == http.StatusUnauthorized }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool { return code(err) == http.StatusNotFound }

// IsConflict reports whether err is a 409 from the backend.
func IsConflict(err error) bool { return code(err) == http.StatusConflict }
