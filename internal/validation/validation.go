// Package validation checks user input before it reaches a backend.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/habitual/internal/models"
)

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email" validate:"required,min=6,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Registration is the sign-up form.
type Registration struct {
	Email    string `json:"email" validate:"required,min=6,email"`
	Password string `json:"password" validate:"required,min=6"`
	Confirm  string `json:"confirm" validate:"required,eqfield=Password"`
}

// Credentials drops the confirmation.
func (r Registration) Credentials() Credentials {
	return Credentials{Email: r.Email, Password: r.Password}
}

// HabitInput is the add-habit form.
type HabitInput struct {
	Title       string           `json:"title" validate:"required,max=128"`
	Description string           `json:"description" validate:"required,max=1024"`
	Frequency   models.Frequency `json:"frequency" validate:"required,oneof=daily weekly monthly"`
}

// Normalized trims whitespace and lowercases the frequency.
func (h HabitInput) Normalized() HabitInput {
	return HabitInput{
		Title:       strings.TrimSpace(h.Title),
		Description: strings.TrimSpace(h.Description),
		Frequency:   models.Frequency(strings.ToLower(strings.TrimSpace(string(h.Frequency)))),
	}
}

// FieldError is one failed field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "confirm" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// FieldErrors holds every failed field in declaration order.
type FieldErrors struct {
	Errors []FieldError
}

func (e *FieldErrors) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UserMessage returns the first failure, which is what a form shows at its root.
func (e *FieldErrors) UserMessage() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].String()
}

// Field returns the message for name, if that field failed.
func (e *FieldErrors) Field(name string) (string, bool) {
	for _, fe := range e.Errors {
		if fe.Field == name {
			return fe.Message, true
		}
	}
	return "", false
}

// Validator wraps go-playground/validator with form-friendly errors.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports JSON field names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

var std = New()

// Struct validates s, returning *FieldErrors for field failures.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &FieldErrors{}
	for _, e := range verrs {
		out.Errors = append(out.Errors, FieldError{Field: e.Field(), Message: friendlyMessage(e)})
	}
	return out
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "eqfield":
		return "passwords don't match"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// ValidateCredentials checks a sign-in attempt.
func ValidateCredentials(c Credentials) error {
	return std.Struct(c)
}

// ValidateRegistration checks a sign-up attempt.
func ValidateRegistration(r Registration) error {
	return std.Struct(r)
}

// ValidateHabit checks a normalized habit form.
func ValidateHabit(h HabitInput) error {
	return std.Struct(h)
}

// FieldErr returns the failure for one field of a validation result as an
// error, or nil when that field passed. Forms use it for inline messages.
func FieldErr(err error, name string) error {
	var fe *FieldErrors
	if !errors.As(err, &fe) {
		return nil
	}
	for _, e := range fe.Errors {
		if e.Field == name {
			return errors.New(e.String())
		}
	}
	return nil
}
