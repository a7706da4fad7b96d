package validation

import (
	"errors"
	"testing"

	apperrors "github.com/julianstephens/habitual/internal/errors"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name      string
		input     Credentials
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: Credentials{Email: "a@b.co", Password: "secret"}},
		{name: "missing email", input: Credentials{Password: "secret"}, wantField: "email", wantMsg: "email is required"},
		{name: "bad email", input: Credentials{Email: "abcdefg", Password: "secret"}, wantField: "email", wantMsg: "email must be a valid email address"},
		{name: "short email", input: Credentials{Email: "a@b.c", Password: "secret"}, wantField: "email", wantMsg: "email must be at least 6 characters"},
		{name: "short password", input: Credentials{Email: "a@b.co", Password: "12345"}, wantField: "password", wantMsg: "password must be at least 6 characters"},
		{name: "missing password", input: Credentials{Email: "a@b.co"}, wantField: "password", wantMsg: "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateCredentials() = %v, want nil", err)
				}
				return
			}

			var fe *FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("ValidateCredentials() = %v, want *FieldErrors", err)
			}
			if _, ok := fe.Field(tt.wantField); !ok {
				t.Errorf("expected failure on %q, got %v", tt.wantField, fe)
			}
			if got := fe.UserMessage(); got != tt.wantMsg {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	err := ValidateRegistration(Registration{Email: "a@b.co", Password: "secret", Confirm: "secreT"})
	var fe *FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("ValidateRegistration() = %v, want *FieldErrors", err)
	}
	if got := fe.UserMessage(); got != "passwords don't match" {
		t.Errorf("UserMessage() = %q, want mismatch message", got)
	}

	if err := ValidateRegistration(Registration{Email: "a@b.co", Password: "secret", Confirm: "secret"}); err != nil {
		t.Errorf("ValidateRegistration() = %v, want nil", err)
	}
}

func TestValidateHabit(t *testing.T) {
	tests := []struct {
		name      string
		input     HabitInput
		wantField string
	}{
		{name: "valid", input: HabitInput{Title: "Read", Description: "20 pages", Frequency: "daily"}},
		{name: "mixed case frequency", input: HabitInput{Title: "Read", Description: "20 pages", Frequency: " Weekly "}},
		{name: "blank title", input: HabitInput{Title: "   ", Description: "20 pages", Frequency: "daily"}, wantField: "title"},
		{name: "missing description", input: HabitInput{Title: "Read", Frequency: "daily"}, wantField: "description"},
		{name: "unknown frequency", input: HabitInput{Title: "Read", Description: "x", Frequency: "hourly"}, wantField: "frequency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHabit(tt.input.Normalized())
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateHabit() = %v, want nil", err)
				}
				return
			}
			var fe *FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("ValidateHabit() = %v, want *FieldErrors", err)
			}
			if _, ok := fe.Field(tt.wantField); !ok {
				t.Errorf("expected failure on %q, got %v", tt.wantField, fe)
			}
		})
	}
}

func TestFieldErrorsAreUserFacing(t *testing.T) {
	err := ValidateCredentials(Credentials{Email: "a@b.co", Password: "12345"})
	if got := apperrors.Message(err, "fallback"); got != "password must be at least 6 characters" {
		t.Errorf("Message() = %q", got)
	}
}

func TestOneOfMessage(t *testing.T) {
	err := ValidateHabit(HabitInput{Title: "Read", Description: "x", Frequency: "hourly"})
	var fe *FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FieldErrors, got %v", err)
	}
	msg, _ := fe.Field("frequency")
	if msg != "must be one of: daily, weekly, monthly" {
		t.Errorf("frequency message = %q", msg)
	}
}

func TestFieldErr(t *testing.T) {
	err := ValidateRegistration(Registration{Email: "reader@example.com", Password: "secret1", Confirm: "secret2"})

	if got := FieldErr(err, "confirm"); got == nil || got.Error() != "passwords don't match" {
		t.Errorf("FieldErr(confirm) = %v, want passwords don't match", got)
	}
	if got := FieldErr(err, "email"); got != nil {
		t.Errorf("FieldErr(email) = %v, want nil", got)
	}
	if got := FieldErr(errors.New("boom"), "email"); got != nil {
		t.Errorf("FieldErr(non-validation) = %v, want nil", got)
	}
	if got := FieldErr(nil, "email"); got != nil {
		t.Errorf("FieldErr(nil) = %v, want nil", got)
	}
}
