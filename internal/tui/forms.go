package tui

import (
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/validation"
)

// newAuthForm builds the sign-in form, or the sign-up form with a confirm
// field. Field validators run the same rules the session manager applies.
func newAuthForm(auth *authFormModel, signUp bool, width int) *huh.Form {
	check := func(field string) func(string) error {
		return func(s string) error {
			input := *auth
			switch field {
			case "email":
				input.Email = s
			case "password":
				input.Password = s
			case "confirm":
				input.Confirm = s
			}
			if signUp {
				return validation.FieldErr(validation.ValidateRegistration(validation.Registration{
					Email: input.Email, Password: input.Password, Confirm: input.Confirm,
				}), field)
			}
			return validation.FieldErr(validation.ValidateCredentials(validation.Credentials{
				Email: input.Email, Password: input.Password,
			}), field)
		}
	}

	title := "Welcome Back"
	if signUp {
		title = "Create Account"
	}

	fields := []huh.Field{
		huh.NewInput().
			Key("email").
			Title("Email").
			Placeholder("example@gmail.com").
			Value(&auth.Email).
			Validate(check("email")),
		huh.NewInput().
			Key("password").
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&auth.Password).
			Validate(check("password")),
	}
	if signUp {
		fields = append(fields, huh.NewInput().
			Key("confirm").
			Title("Confirm password").
			EchoMode(huh.EchoModePassword).
			Value(&auth.Confirm).
			Validate(check("confirm")))
	}

	return huh.NewForm(huh.NewGroup(fields...).Title(title)).
		WithWidth(width).
		WithShowHelp(false)
}

func newHabitForm(input *validation.HabitInput, width int) *huh.Form {
	check := func(field string) func(string) error {
		return func(s string) error {
			h := *input
			switch field {
			case "title":
				h.Title = s
			case "description":
				h.Description = s
			}
			return validation.FieldErr(validation.ValidateHabit(h.Normalized()), field)
		}
	}

	options := make([]huh.Option[models.Frequency], len(models.Frequencies))
	for i, f := range models.Frequencies {
		options[i] = huh.NewOption(f.Label(), f)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("title").
				Title("Title").
				Value(&input.Title).
				Validate(check("title")),
			huh.NewText().
				Key("description").
				Title("Description").
				Lines(3).
				Value(&input.Description).
				Validate(check("description")),
			huh.NewSelect[models.Frequency]().
				Key("frequency").
				Title("Frequency").
				Options(options...).
				Value(&input.Frequency),
		).Title("Add Habit"),
	).
		WithWidth(width).
		WithShowHelp(false)
}
