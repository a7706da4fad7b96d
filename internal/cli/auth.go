package cli

import (
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/validation"
)

type SignupCmd struct {
	Email    string `help:"Account email." short:"e"`
	Password string `help:"Account password. Prompted for when omitted." env:"HABITUAL_PASSWORD"`
}

func (cmd *SignupCmd) Run(ctx *Context) error {
	reg := validation.Registration{Email: cmd.Email, Password: cmd.Password, Confirm: cmd.Password}
	if reg.Email == "" || reg.Password == "" {
		if err := promptCredentials(&reg.Email, &reg.Password, &reg.Confirm, true); err != nil {
			return err
		}
	}
	if err := validation.ValidateRegistration(reg); err != nil {
		return err
	}

	ctx.Sessions.Refresh(ctx.Ctx)
	if _, ok := ctx.Sessions.Identity(); ok {
		ctx.Sessions.LogOut(ctx.Ctx)
	}
	if err := ctx.Sessions.SignUp(ctx.Ctx, reg.Email, reg.Password); err != nil {
		return errors.New(apperrors.Message(err, constants.SignUpFallbackMessage))
	}

	identity, _ := ctx.Sessions.Identity()
	ctx.printf("✓ Signed up and logged in as %s\n", identity.Email)
	return nil
}

type LoginCmd struct {
	Email    string `help:"Account email." short:"e"`
	Password string `help:"Account password. Prompted for when omitted." env:"HABITUAL_PASSWORD"`
}

func (cmd *LoginCmd) Run(ctx *Context) error {
	creds := validation.Credentials{Email: cmd.Email, Password: cmd.Password}
	if creds.Email == "" || creds.Password == "" {
		if err := promptCredentials(&creds.Email, &creds.Password, nil, false); err != nil {
			return err
		}
	}

	ctx.Sessions.Refresh(ctx.Ctx)
	if identity, ok := ctx.Sessions.Identity(); ok {
		if identity.Email == creds.Email {
			ctx.printf("Already logged in as %s\n", identity.Email)
			return nil
		}
		// The backend refuses a second session while one is active
		ctx.Sessions.LogOut(ctx.Ctx)
	}

	if err := ctx.Sessions.SignIn(ctx.Ctx, creds.Email, creds.Password); err != nil {
		return errors.New(apperrors.Message(err, constants.SignInFallbackMessage))
	}

	identity, _ := ctx.Sessions.Identity()
	ctx.printf("✓ Logged in as %s\n", identity.Email)
	return nil
}

type LogoutCmd struct{}

func (cmd *LogoutCmd) Run(ctx *Context) error {
	identity, err := ctx.RequireIdentity()
	if err != nil {
		ctx.println("Not logged in.")
		return nil
	}
	ctx.Sessions.LogOut(ctx.Ctx)
	ctx.printf("✓ Logged out %s\n", identity.Email)
	return nil
}

type WhoamiCmd struct{}

func (cmd *WhoamiCmd) Run(ctx *Context) error {
	identity, err := ctx.RequireIdentity()
	if err != nil {
		return err
	}
	ctx.printf("Email: %s\n", identity.Email)
	ctx.printf("ID:    %s\n", identity.ID)
	if !identity.Registration.IsZero() {
		ctx.printf("Since: %s\n", identity.Registration.Local().Format(constants.DateFormat))
	}
	return nil
}

// promptCredentials asks for whatever is missing. confirm is only asked for
// when signing up.
func promptCredentials(email, password, confirm *string, signUp bool) error {
	fields := []huh.Field{
		huh.NewInput().
			Title("Email").
			Value(email).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("email is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password),
	}
	if signUp && confirm != nil {
		fields = append(fields, huh.NewInput().
			Title("Confirm password").
			EchoMode(huh.EchoModePassword).
			Value(confirm))
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}
